package disasm

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Listing is the disassembly of one file.
type Listing struct {
	Path  string
	Lines []Line
}

// DisassembleFiles reads and disassembles each file concurrently, every
// file loaded at origin. Listings come back in the order of paths. The
// first failure cancels the remaining work.
func DisassembleFiles(ctx context.Context, paths []string, origin uint16, opts Options) ([]Listing, error) {
	listings := make([]Listing, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "disasm: read %s", path)
			}
			lines, err := Disassemble(code, origin, opts)
			if err != nil {
				return errors.WithMessage(err, path)
			}
			listings[i] = Listing{Path: path, Lines: lines}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listings, nil
}
