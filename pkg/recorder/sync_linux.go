//go:build linux

package recorder

import "golang.org/x/sys/unix"

// flush сбрасывает данные записи на диск (Linux)
// fdatasync дешевле fsync: метаданные (mtime и пр.) не критичны для
// восстановления записи, важны только сами байты кадров
func (r *Recorder) flush() error {
	if r.file == nil {
		return nil
	}
	return unix.Fdatasync(int(r.file.Fd()))
}
