package detect

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels читает по одному имени класса на строку, пропуская пустые строки и # комментарии.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		names = append(names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no class names in %s", path)
	}
	return names, nil
}

// ClassName: имя класса по индексу.
func ClassName(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("class_%d", id)
}
