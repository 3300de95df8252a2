package dataset

import "github.com/okian/hoopsim/internal/domain/model"

// ResolveSubject returns the single row identified by key. Zero or several
// matches fail with *AmbiguousSubjectError; duplicates are never resolved by
// picking one.
func (d *Dataset) ResolveSubject(key model.Key) (int, model.PlayerSeasonRecord, error) {
	rows := d.byKey[key]
	if len(rows) != 1 {
		return -1, model.PlayerSeasonRecord{}, &AmbiguousSubjectError{Key: key, Matches: len(rows)}
	}
	return rows[0], d.records[rows[0]], nil
}

// ResolveEligibleSubject resolves key like ResolveSubject and additionally
// requires the subject to clear minutesFloor.
func (d *Dataset) ResolveEligibleSubject(key model.Key, minutesFloor float64) (int, model.PlayerSeasonRecord, error) {
	row, rec, err := d.ResolveSubject(key)
	if err != nil {
		return row, rec, err
	}
	if rec.Minutes < minutesFloor {
		return row, rec, &NotEligibleError{Key: key, Minutes: rec.Minutes, MinutesFloor: minutesFloor}
	}
	return row, rec, nil
}
