package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// output is a file that only appears under its final name once commit
// succeeds. Until then the bytes live in a hidden temp file next to it.
type output struct {
	path string
	tmp  *os.File
}

func (o *output) create() error {
	dir := filepath.Dir(o.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".export-*"+filepath.Ext(o.path))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	o.tmp = f
	return nil
}

func (o *output) commit() error {
	if o.tmp == nil {
		return fmt.Errorf("commit %s: output not open", o.path)
	}
	name := o.tmp.Name()
	if err := o.tmp.Close(); err != nil {
		o.discard()
		return fmt.Errorf("close output: %w", err)
	}
	o.tmp = nil
	if err := os.Rename(name, o.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

func (o *output) discard() error {
	if o.tmp == nil {
		return nil
	}
	name := o.tmp.Name()
	o.tmp.Close()
	o.tmp = nil
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove partial output: %w", err)
	}
	return nil
}
