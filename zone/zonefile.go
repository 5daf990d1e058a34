package zone

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/miekg/dns"
)

const defaultTTL = 3600

// Parse reads presentation format zone data into a new tree. $INCLUDE, $ORIGIN and $TTL
// are honoured. Any parse or insert error aborts the whole load.
func Parse(r io.Reader, origin string, class uint16, fileName string) (*Tree, error) {
	tree := NewTree(origin, class)
	zp := dns.NewZoneParser(r, tree.Origin, fileName)
	zp.SetIncludeAllowed(true)
	zp.SetDefaultTTL(defaultTTL)
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		if _, err := tree.Add(rr); err != nil {
			return nil, fmt.Errorf("%s: %w", fileName, err)
		}
	}
	if err := zp.Err(); err != nil {
		return nil, err
	}
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}

	return tree, nil
}

// LoadZonefile replaces the zone data with the contents of the configured zonefile. On
// error the current data is left untouched.
func (t *Zone) LoadZonefile() error {
	if len(t.Zonefile) == 0 {
		return fmt.Errorf("zone %s has no zonefile", t.Name)
	}
	f, err := os.Open(t.Zonefile)
	if err != nil {
		return err
	}
	defer f.Close()

	tree, err := Parse(f, t.Name, t.Class, t.Zonefile)
	if err != nil {
		return err
	}
	t.Replace(tree)
	serial, _ := tree.Serial()
	t.Log.Minorf("Loaded %d RRs serial %d from %s", tree.Len(), serial, t.Zonefile)

	return nil
}

// WriteZonefile writes the tree to path via a temporary file which is renamed into place
// so a reader never sees a partial file.
func WriteZonefile(tree *Tree, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // No-op once renamed

	w := bufio.NewWriter(tmp)
	fmt.Fprintf(w, "$ORIGIN %s\n", tree.Origin)
	for _, rr := range tree.RRs() {
		if _, err = fmt.Fprintln(w, rr.String()); err != nil {
			break
		}
	}
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return os.Rename(tmp.Name(), path)
}
