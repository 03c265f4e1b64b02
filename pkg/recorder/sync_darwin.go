//go:build darwin

package recorder

import "golang.org/x/sys/unix"

// flush сбрасывает данные записи на диск (macOS)
// На macOS fsync не гарантирует попадание на носитель, для реальной
// долговечности нужен fcntl F_FULLFSYNC
func (r *Recorder) flush() error {
	if r.file == nil {
		return nil
	}
	_, err := unix.FcntlInt(r.file.Fd(), unix.F_FULLFSYNC, 0)
	return err
}
