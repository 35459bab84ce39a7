package source

import (
	"bufio"
	"io"
	"strings"
)

// maxLine caps a single source line; long display-math lines fit well below it.
const maxLine = 1024 * 1024

// TextReader handles plain markup files. Line endings are normalised to "\n".
type TextReader struct{}

func (p *TextReader) Read(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var out strings.Builder
	first := true
	for scanner.Scan() {
		if !first {
			out.WriteByte('\n')
		}
		first = false
		out.WriteString(strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}
