package catalog

// maxCandidates bounds the disambiguation list returned for an
// ambiguous identifier prefix.
const maxCandidates = 5

// Match is the tagged result of an identifier-prefix lookup. Exactly
// one of Record or Candidates is populated: Record for a unique
// match, Candidates (alongside ErrAmbiguous) when the caller must
// supply a longer prefix.
type Match struct {
	Record     *Document  `json:"record,omitempty"`
	Candidates []Document `json:"candidates,omitempty"`
}

// Unique reports whether the lookup resolved to a single record.
func (m Match) Unique() bool {
	return m.Record != nil
}
