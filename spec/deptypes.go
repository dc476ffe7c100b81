package spec

import (
	"fmt"
	"strings"
)

// DepFlag is a bitset of dependency-type categories carried by an edge.
type DepFlag int

const (
	DepBuild DepFlag = 1 << iota
	DepLink
	DepRun
	DepTest

	DepAll = DepBuild | DepLink | DepRun | DepTest
)

var deptypeNames = []struct {
	flag DepFlag
	name string
}{
	{DepBuild, "build"},
	{DepLink, "link"},
	{DepRun, "run"},
	{DepTest, "test"},
}

// CanonicalizeDeptypes turns a list of dependency-type names into a
// DepFlag. "all" expands to every category.
func CanonicalizeDeptypes(names []string) (DepFlag, error) {
	var flag DepFlag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "all" {
			flag |= DepAll
			continue
		}
		found := false
		for _, dt := range deptypeNames {
			if dt.name == name {
				flag |= dt.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("invalid dependency type: %q", name)
		}
	}
	return flag, nil
}

// Types returns the category names set in the flag, in canonical order.
func (f DepFlag) Types() []string {
	var names []string
	for _, dt := range deptypeNames {
		if f&dt.flag != 0 {
			names = append(names, dt.name)
		}
	}
	return names
}

func (f DepFlag) String() string {
	return strings.Join(f.Types(), ",")
}
