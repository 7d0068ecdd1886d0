package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// ReportLogger records every HID report the driver sends, hex-dumped with
// a timestamp and a report-kind label — adapted from the teacher's raw wire logger for
// USB report tracing instead of packet tracing. A nil writer makes it a
// no-op, so it's safe to wire in unconditionally and gate on config.
type ReportLogger interface {
	LogKeys(modifiers uint8, keys []uint8)
	LogConsumer(usage uint16)
}

type reportLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewReportLogger builds a ReportLogger writing to w. If w is nil, the
// returned logger discards everything.
func NewReportLogger(w io.Writer) ReportLogger {
	return &reportLogger{w: w}
}

func (r *reportLogger) LogKeys(modifiers uint8, keys []uint8) {
	if r.w == nil {
		return
	}
	var hexbuf bytes.Buffer
	writeHex(&hexbuf, keys)
	r.writeLine(fmt.Sprintf("keys mods=%02x keys=%s\n", modifiers, hexbuf.String()))
}

func (r *reportLogger) LogConsumer(usage uint16) {
	if r.w == nil {
		return
	}
	r.writeLine(fmt.Sprintf("consumer usage=%04x\n", usage))
}

func (r *reportLogger) writeLine(body string) {
	line := fmt.Sprintf("%s %s", time.Now().Format("2006/01/02 15:04:05"), body)
	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}

func writeHex(buf *bytes.Buffer, data []uint8) {
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteByte(hexdigits[b>>4])
		buf.WriteByte(hexdigits[b&0x0f])
	}
}
