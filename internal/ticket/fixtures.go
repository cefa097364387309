package ticket

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// Fixtures returns the built-in offline tickets, ordered by file name.
func Fixtures() ([]*Record, error) {
	names, err := fs.Glob(fixtureFS, "fixtures/*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	records := make([]*Record, 0, len(names))
	for _, name := range names {
		data, err := fixtureFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading fixture %s: %w", name, err)
		}
		r, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding fixture %s: %w", name, err)
		}
		records = append(records, r)
	}
	return records, nil
}
