package frontmatter

import (
	"bufio"
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes a metadata block.
const Delimiter = "---"

// ErrNoMetadata indicates the document does not contain a metadata block
// enclosed by two delimiter lines.
var ErrNoMetadata = errors.New("no metadata section")

// Split separates the metadata block from the body.
//
// The metadata block is the text between the first two lines consisting solely
// of `---` (trailing whitespace and CR are tolerated). Anything before the first
// delimiter is discarded. Fewer than two delimiter lines yields ErrNoMetadata.
func Split(content []byte) (metadata []byte, body []byte, err error) {
	var bounds [2][2]int // [delimiter][start,end)
	found := 0
	offset := 0

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	scanner.Split(scanLinesKeepEOL)
	for found < 2 && scanner.Scan() {
		line := scanner.Bytes()
		if isDelimiter(line) {
			bounds[found] = [2]int{offset, offset + len(line)}
			found++
		}
		offset += len(line)
	}
	if found < 2 {
		return nil, nil, ErrNoMetadata
	}

	return content[bounds[0][1]:bounds[1][0]], content[bounds[1][1]:], nil
}

// ParseYAML parses a raw metadata block (without delimiters) into a map.
func ParseYAML(metadata []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(metadata)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(metadata, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r\n")) == Delimiter
}

// scanLinesKeepEOL is bufio.ScanLines without stripping the line terminator,
// so byte offsets stay aligned with the input.
func scanLinesKeepEOL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
