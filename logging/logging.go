package logging

import (
	"io"
	"log"
	"os"
	"sync"
)

const maxLogBytes = 2 * 1024 * 1024 // 2MB

// RotatingWriter appends to a single log file and swaps it out for a .1
// backup once it grows past maxLogBytes.
type RotatingWriter struct {
	mu   sync.Mutex
	file *os.File
	path string
	size int64
}

// Setup routes the standard logger to stdout plus a rotating file.
func Setup(logPath string) (*RotatingWriter, error) {
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxLogBytes {
		os.Truncate(logPath, 0)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	rw := &RotatingWriter{file: f, path: logPath, size: size}

	log.SetFlags(log.LstdFlags)
	log.SetOutput(io.MultiWriter(os.Stdout, rw))

	return rw, nil
}

func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err = w.file.Write(p)
	w.size += int64(n)

	if w.size > maxLogBytes {
		w.rotate()
	}

	return n, err
}

func (w *RotatingWriter) rotate() {
	w.file.Close()

	// One backup generation is enough.
	os.Rename(w.path, w.path+".1")

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}

	w.file = f
	w.size = 0
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
