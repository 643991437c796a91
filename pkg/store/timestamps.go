package store

// FPPTimestamps is the best-effort persisted record an authority decision
// (§4.7) consults for the FPP side's last-known update epoch, keyed both by
// identityHash and by stateHash (a row can be recognized as "the same
// content, written at time T" even if its identity changed shape upstream).
type FPPTimestamps struct {
	ByIdentity  map[string]int64 `json:"byIdentity"`
	ByStateHash map[string]int64 `json:"byStateHash"`
}

// FPPTimestampStore persists FPPTimestamps.
type FPPTimestampStore struct {
	Path string
}

func (s FPPTimestampStore) Load() (FPPTimestamps, error) {
	var ts FPPTimestamps
	exists, err := readJSON(s.Path, &ts)
	if err != nil {
		return FPPTimestamps{}, err
	}
	if !exists {
		ts = FPPTimestamps{}
	}
	if ts.ByIdentity == nil {
		ts.ByIdentity = map[string]int64{}
	}
	if ts.ByStateHash == nil {
		ts.ByStateHash = map[string]int64{}
	}
	return ts, nil
}

func (s FPPTimestampStore) Save(ts FPPTimestamps) error {
	if ts.ByIdentity == nil {
		ts.ByIdentity = map[string]int64{}
	}
	if ts.ByStateHash == nil {
		ts.ByStateHash = map[string]int64{}
	}
	return writeJSONAtomic(s.Path, ts)
}

// Record stamps both indices for an event that was just written to (or
// observed on) the FPP side.
func (ts *FPPTimestamps) Record(identityHash, stateHash string, epoch int64) {
	if ts.ByIdentity == nil {
		ts.ByIdentity = map[string]int64{}
	}
	if ts.ByStateHash == nil {
		ts.ByStateHash = map[string]int64{}
	}
	ts.ByIdentity[identityHash] = epoch
	ts.ByStateHash[stateHash] = epoch
}
