package vtree

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// NewMaterializingDelegate builds an Apply delegate that writes ordinary
// file/directory changes straight through to fsys: a read-from-one-side,
// write-to-the-other shape where "one side" is inPath and "the other" is
// outPath.
func NewMaterializingDelegate(fsys afero.Fs) Delegate {
	return Delegate{
		Mkdir: func(inPath, outPath, relPath string) error {
			return fsys.MkdirAll(outPath, 0755)
		},
		Create: func(inPath, outPath, relPath string) error {
			return copyFile(fsys, inPath, outPath)
		},
		Change: func(inPath, outPath, relPath string) error {
			return copyFile(fsys, inPath, outPath)
		},
		Rmdir: func(inPath, outPath, relPath string) error {
			return fsys.RemoveAll(outPath)
		},
		Unlink: func(inPath, outPath, relPath string) error {
			return fsys.Remove(outPath)
		},
	}
}

func copyFile(fsys afero.Fs, inPath, outPath string) error {
	data, err := afero.ReadFile(fsys, inPath)
	if err != nil {
		return errors.Wrapf(err, "copy %s", inPath)
	}
	return afero.WriteFile(fsys, outPath, data, 0644)
}

// MaterializeDirLink recursively copies the contents of a directory-
// symlink Entry's linked subtree into dest. Apply delegates call this in
// place of a real OS symlink when !SymlinkCapable(): directory symlink
// entries are materialized as copies instead.
func MaterializeDirLink(fsys afero.Fs, e Entry, dest string) error {
	if e.Link == nil || e.Link.Kind != LinkInternal {
		return newPathError("materialize", dest, ErrInvalidPath)
	}
	sub, err := e.Link.Tree.Chdir(e.Link.Target)
	if err != nil {
		return err
	}
	entries, err := sub.Entries()
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(dest, 0755); err != nil {
		return errors.Wrapf(err, "materialize %s", dest)
	}
	for _, se := range entries {
		target := JoinAbs(dest, se.Path)
		if se.IsDir() {
			if err := fsys.MkdirAll(target, 0755); err != nil {
				return errors.Wrapf(err, "materialize %s", target)
			}
			continue
		}
		data, err := sub.ReadFile(se.Path)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(fsys, target, data, se.Mode); err != nil {
			return errors.Wrapf(err, "materialize %s", target)
		}
	}
	return nil
}
