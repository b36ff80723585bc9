package installer

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/obmm/pkgs/errors"
)

// CompareVersions compares two dotted numeric versions such as "1.2.0.416".
// Missing trailing components count as zero, so "1.2" equals "1.2.0.0".
// It returns -1, 0 or 1.
func CompareVersions(a, b string) (int, error) {
	pa, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	pb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}

	for len(pa) < len(pb) {
		pa = append(pa, 0)
	}
	for len(pb) < len(pa) {
		pb = append(pb, 0)
	}

	for i := range pa {
		switch {
		case pa[i] < pb[i]:
			return -1, nil
		case pa[i] > pb[i]:
			return 1, nil
		}
	}
	return 0, nil
}

func parseVersion(v string) ([]int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, errors.New(errors.ErrInvalidArgument, "empty version").
			WithContext("version", v)
	}

	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, errors.Newf(errors.ErrInvalidArgument, "'%s' is not a valid version", v).
				WithContext("version", v)
		}
		out[i] = n
	}
	return out, nil
}
