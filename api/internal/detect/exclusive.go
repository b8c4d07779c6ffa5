package detect

import "sync"

// Exclusive сериализует инференс на одной сети: вход и выход сети
// разделяются между запросами.
type Exclusive struct {
	sync.Mutex
}

// Run вызывает fn под блокировкой, копирует выход и только потом вызывает
// release. Возвращённый срез принадлежит вызывающему.
func (e *Exclusive) Run(fn func() (out []float32, release func(), err error)) ([]float32, error) {
	e.Lock()
	defer e.Unlock()

	out, release, err := fn()
	if release != nil {
		defer release()
	}
	if err != nil {
		return nil, err
	}
	return append([]float32(nil), out...), nil
}
