// Package template substitutes a .thumbnailer Exec line's %-tokens and
// shell-splits it into an argv.
package template

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"thumbnailify/internal/thumberr"
)

// Args holds the substitution values for one invocation.
type Args struct {
	SizePixels int
	SourceURI  string
	SourcePath string // absolute path, per spec.md OQ-1
	OutputPath string
	// CompatBasename substitutes %i with filepath.Base(SourcePath)
	// instead of the absolute path, for thumbnailers written against
	// the historical GNOME convention (OQ-1 compatibility flag).
	CompatBasename bool
}

// Build shell-splits execLine (POSIX-like quoting, backslash escapes
// honored) then substitutes, token by token and in a single
// left-to-right pass per token, %%->%, %s->size, %u->uri, %i->path,
// %o->output. Unknown %-sequences are preserved verbatim.
func Build(execLine string, args Args) ([]string, error) {
	tokens, err := shellwords.Parse(execLine)
	if err != nil {
		return nil, thumberr.New(thumberr.KindBadConfig, execLine, err)
	}
	if len(tokens) == 0 {
		return nil, thumberr.New(thumberr.KindBadConfig, execLine, errEmptyCommand{})
	}

	iValue := args.SourcePath
	if args.CompatBasename {
		iValue = filepath.Base(args.SourcePath)
	}

	out := make([]string, len(tokens))
	for idx, tok := range tokens {
		out[idx] = substitute(tok, args.SizePixels, args.SourceURI, iValue, args.OutputPath)
	}
	return out, nil
}

// substitute performs the single left-to-right token pass described in
// spec.md §4.7: each recognized two-character sequence is replaced as
// it is encountered; anything else (including unrecognized %x
// sequences) passes through untouched.
func substitute(tok string, size int, uri, input, output string) string {
	var b strings.Builder
	for i := 0; i < len(tok); i++ {
		if tok[i] != '%' || i+1 >= len(tok) {
			b.WriteByte(tok[i])
			continue
		}
		switch tok[i+1] {
		case '%':
			b.WriteByte('%')
			i++
		case 's':
			b.WriteString(strconv.Itoa(size))
			i++
		case 'u':
			b.WriteString(uri)
			i++
		case 'i':
			b.WriteString(input)
			i++
		case 'o':
			b.WriteString(output)
			i++
		default:
			b.WriteByte(tok[i])
		}
	}
	return b.String()
}

type errEmptyCommand struct{}

func (errEmptyCommand) Error() string { return "empty command after shell-splitting" }
