package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar"
	"github.com/cespare/xxhash/v2"

	"tia/internal/analysis"
	tiaerrors "tia/internal/errors"
	"tia/internal/logging"
	"tia/internal/paths"
)

// FolderOptions configures a Folder collector.
type FolderOptions struct {
	// Root is the project root. OutputFolders and FactsDir are relative to it
	// unless absolute.
	Root          string
	OutputFolders []string
	Selector      Selector
	// Include and Exclude are doublestar globs over slash-separated paths
	// relative to an output folder.
	Include  []string
	Exclude  []string
	FactsDir string
	Logger   *logging.Logger
}

// Folder collects units by scanning output folders and facts from fact
// files.
type Folder struct {
	opts   FolderOptions
	logger *logging.Logger
}

// NewFolder creates a Folder collector.
func NewFolder(opts FolderOptions) (*Folder, error) {
	if opts.Selector == nil {
		opts.Selector = Selectors["class-files"]
	}
	for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if _, err := doublestar.Match(p, p); err != nil {
			return nil, tiaerrors.New(tiaerrors.ConfigInvalid, fmt.Sprintf("invalid glob %q", p), err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Folder{opts: opts, logger: logger}, nil
}

func (f *Folder) resolve(p string) string {
	return paths.Resolve(f.opts.Root, p)
}

// folderName is the OutputFolder recorded for units under folder. Absolute
// folders inside the root are recorded relative to it, so unit identities
// survive moving the checkout.
func (f *Folder) folderName(folder string) string {
	if !filepath.IsAbs(folder) || !paths.IsWithinRoot(folder, f.opts.Root) {
		return filepath.ToSlash(folder)
	}
	rel, err := paths.CanonicalizePath(folder, f.opts.Root)
	if err != nil {
		return filepath.ToSlash(folder)
	}
	return rel
}

// CurrentUnits scans every output folder. A folder that does not exist
// contributes nothing.
func (f *Folder) CurrentUnits(ctx context.Context) ([]analysis.CompiledUnit, error) {
	var units []analysis.CompiledUnit
	for _, folder := range f.opts.OutputFolders {
		found, err := f.scan(ctx, folder)
		if err != nil {
			return nil, tiaerrors.New(tiaerrors.CollectorFailed, "scan "+folder, err)
		}
		units = append(units, found...)
	}
	f.logger.Debug("Scanned compiled units", map[string]interface{}{
		"folders": len(f.opts.OutputFolders),
		"units":   len(units),
	})
	return units, nil
}

func (f *Folder) scan(ctx context.Context, folder string) ([]analysis.CompiledUnit, error) {
	dir := f.resolve(folder)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		f.logger.Debug("Output folder does not exist", map[string]interface{}{"folder": folder})
		return nil, nil
	}

	outputFolder := f.folderName(folder)
	var units []analysis.CompiledUnit
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !f.included(rel) {
			return nil
		}
		name, ok := f.opts.Selector.Select(rel)
		if !ok {
			return nil
		}

		hash, err := HashFile(path)
		if err != nil {
			return err
		}
		units = append(units, analysis.CompiledUnit{
			Name:         name,
			Path:         rel,
			OutputFolder: outputFolder,
			Hash:         hash,
		})
		return nil
	})
	return units, err
}

func (f *Folder) included(rel string) bool {
	for _, p := range f.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(f.opts.Include) == 0 {
		return true
	}
	for _, p := range f.opts.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// CurrentTestFacts reads the fact files and folds nested coverage into
// enclosing tests.
func (f *Folder) CurrentTestFacts(_ context.Context) ([]TestFact, error) {
	facts, err := ReadFacts(f.resolve(f.opts.FactsDir))
	if err != nil {
		return nil, tiaerrors.New(tiaerrors.CollectorFailed, "read test facts", err)
	}
	return FoldNested(facts), nil
}

// ClearFacts removes the consumed fact files.
func (f *Folder) ClearFacts() error {
	return ClearFacts(f.resolve(f.opts.FactsDir))
}

// HashFile returns the xxhash64 of the file content as 16 hex characters.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	h := xxhash.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}


