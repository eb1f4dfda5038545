package clean

// ParseStats counts normalization outcomes for a single run. The counters
// feed the datetime-threshold gate and the diagnostics block the UI shows.
type ParseStats struct {
	RawRows          int `json:"rawRows"`
	InvalidPhoneRows int `json:"invalidPhoneRows"`

	JoinParsed    int `json:"joinParsed"`
	JoinAttempted int `json:"joinAttempted"`

	LeaveParsed    int `json:"leaveParsed"`
	LeaveAttempted int `json:"leaveAttempted"`

	RegistrationParsed    int `json:"registrationParsed"`
	RegistrationAttempted int `json:"registrationAttempted"`

	DedupRecords int `json:"dedupRecords"`
}

// JoinRatio is the join-time parse success ratio. Attempted counts only
// non-blank inputs; zero attempts yield zero, which fails any threshold.
func (s ParseStats) JoinRatio() float64 {
	return ratio(s.JoinParsed, s.JoinAttempted)
}

// LeaveRatio is the leave-time parse success ratio.
func (s ParseStats) LeaveRatio() float64 {
	return ratio(s.LeaveParsed, s.LeaveAttempted)
}

// RegistrationRatio is the registration-time parse success ratio.
func (s ParseStats) RegistrationRatio() float64 {
	return ratio(s.RegistrationParsed, s.RegistrationAttempted)
}

func ratio(parsed, attempted int) float64 {
	if attempted < 1 {
		attempted = 1
	}
	return float64(parsed) / float64(attempted)
}
