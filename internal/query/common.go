package query

import (
	"time"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

func parseISODate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "decoding indexed date")
	}
	return t, nil
}
