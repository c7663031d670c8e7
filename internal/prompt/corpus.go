package prompt

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var ErrEmptyCorpus = errors.New("prompt corpus is empty")

//go:embed corpus/*.txt
var embedded embed.FS

// Corpus is the pool of candidate prompts for a tier.
type Corpus []string

type Loader interface {
	Load(sourceID string) (Corpus, error)
}

// DirLoader reads newline-delimited corpora out of a file system.
type DirLoader struct{ fsys fs.FS }

func NewDirLoader(fsys fs.FS) *DirLoader { return &DirLoader{fsys: fsys} }

// NewOSLoader loads corpora from dir on disk. An empty dir selects the
// corpora compiled into the binary.
func NewOSLoader(dir string) *DirLoader {
	if strings.TrimSpace(dir) == "" {
		return EmbeddedLoader()
	}
	return NewDirLoader(os.DirFS(dir))
}

func EmbeddedLoader() *DirLoader {
	sub, err := fs.Sub(embedded, "corpus")
	if err != nil {
		return NewDirLoader(embed.FS{})
	}
	return NewDirLoader(sub)
}

func (l *DirLoader) Load(sourceID string) (Corpus, error) {
	f, err := l.fsys.Open(strings.TrimSpace(sourceID))
	if err != nil {
		return nil, fmt.Errorf("open corpus %q: %w", sourceID, err)
	}
	defer f.Close()

	var out Corpus
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, norm.NFC.String(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus %q: %w", sourceID, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("corpus %q: %w", sourceID, ErrEmptyCorpus)
	}
	return out, nil
}

var (
	fallbackEasy = Corpus{
		"The cat sat on the mat.",
		"Go is fun to learn.",
		"I love coding games.",
		"The sun is bright today.",
		"Dogs are loyal friends.",
	}
	fallbackMedium = Corpus{
		"Programming requires patience and practice.",
		"The quick brown fox jumps over the lazy dog.",
		"Software development is both art and science.",
		"Debugging is twice as hard as writing code.",
		"Code is read more often than it is written.",
	}
	fallbackHard = Corpus{
		"Object-oriented programming paradigms facilitate modular design.",
		"Algorithmic complexity analysis determines computational efficiency.",
		"Polymorphism enables dynamic method resolution at runtime.",
		"Encapsulation provides data abstraction and information hiding.",
		"Inheritance promotes code reusability and hierarchical relationships.",
	}
)

// Fallback picks a built-in corpus by looking for "easy" or "medium" in
// sourceID. Everything else gets the hard corpus. The result is a copy.
func Fallback(sourceID string) Corpus {
	id := strings.ToLower(sourceID)
	var c Corpus
	switch {
	case strings.Contains(id, "easy"):
		c = fallbackEasy
	case strings.Contains(id, "medium"):
		c = fallbackMedium
	default:
		c = fallbackHard
	}
	return append(Corpus(nil), c...)
}
