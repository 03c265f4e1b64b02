//go:build !linux && !darwin

package recorder

// flush сбрасывает данные записи на диск (остальные платформы)
// Используется переносимый Sync стандартной библиотеки
func (r *Recorder) flush() error {
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}
