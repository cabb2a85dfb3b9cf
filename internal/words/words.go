package words

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

var ErrTooFewWords = errors.New("word pool needs at least 3 words")

var builtin = []string{"cat", "dog", "house", "tree", "car", "pizza", "phone", "ball", "star", "book"}

// Pool hands out candidate words. It is read-only after construction.
type Pool struct {
	words []string
}

func NewPool(words []string) (*Pool, error) {
	if len(words) < 3 {
		return nil, ErrTooFewWords
	}
	return &Pool{words: append([]string(nil), words...)}, nil
}

func Default() *Pool {
	p, _ := NewPool(builtin)
	return p
}

// Load reads one word per line, skipping blank lines.
func Load(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word file: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word file: %w", err)
	}

	p, err := NewPool(words)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Pick returns n distinct words chosen uniformly, capped at the pool size.
func (p *Pool) Pick(n int) []string {
	n = min(n, len(p.words))
	out := make([]string, 0, n)
	for _, i := range rand.Perm(len(p.words))[:n] {
		out = append(out, p.words[i])
	}
	return out
}

func (p *Pool) Len() int { return len(p.words) }
