package log

import "io"

// MultiWriter fans log output out to every registered appender. A failing
// appender does not stop the others; the last error is returned.
type MultiWriter struct {
	writers []io.Writer
}

// Write hands p to each appender and always reports len(p) as written.
func (m *MultiWriter) Write(p []byte) (int, error) {
	var err error
	for _, w := range m.writers {
		if _, werr := w.Write(p); werr != nil {
			err = werr
		}
	}
	return len(p), err
}

// Add registers an appender and returns m for chaining.
func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

// NewMultiWriter creates a writer with no appenders.
func NewMultiWriter() *MultiWriter {
	return &MultiWriter{}
}
