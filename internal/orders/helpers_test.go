package orders

import (
	"io"
	"strings"
	"time"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
