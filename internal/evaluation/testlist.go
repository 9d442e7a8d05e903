package evaluation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ErrMalformedList is returned for test lists that do not follow the
// gallery-size-then-groups layout
var ErrMalformedList = errors.New("malformed test list")

// Pair is one comparison of the test list
type Pair struct {
	A, B    []string // image file names of each template
	Genuine bool     // both sides show the same identity
}

// TestList is a parsed test list
type TestList struct {
	GallerySize int
	Pairs       []Pair
}

// LoadTestList reads a test list file
func LoadTestList(path string) (TestList, error) {
	f, err := os.Open(path)
	if err != nil {
		return TestList{}, fmt.Errorf("failed to open test list: %w", err)
	}
	defer f.Close()
	return ParseTestList(f)
}

// ParseTestList reads whitespace separated tokens: the gallery size g, then
// groups of g files for A, g files for B and a label where "1" marks a
// genuine pair.
func ParseTestList(r io.Reader) (TestList, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return TestList{}, fmt.Errorf("failed to read test list: %w", err)
	}
	if len(tokens) == 0 {
		return TestList{}, fmt.Errorf("%w: empty", ErrMalformedList)
	}

	g, err := strconv.Atoi(tokens[0])
	if err != nil || g < 1 {
		return TestList{}, fmt.Errorf("%w: bad gallery size %q", ErrMalformedList, tokens[0])
	}

	group := 2*g + 1
	body := tokens[1:]
	if len(body)%group != 0 {
		return TestList{}, fmt.Errorf("%w: %d trailing tokens", ErrMalformedList, len(body)%group)
	}

	list := TestList{GallerySize: g, Pairs: make([]Pair, 0, len(body)/group)}
	for i := 0; i < len(body); i += group {
		list.Pairs = append(list.Pairs, Pair{
			A:       body[i : i+g],
			B:       body[i+g : i+2*g],
			Genuine: body[i+2*g] == "1",
		})
	}
	return list, nil
}
