package models

// Status is the workflow position of an episode. The database stores the
// legacy display label; ParseStatus maps it back onto this closed set.
type Status int

const (
	StatusUnknown Status = iota
	StatusCasting
	StatusLocationScheduling
	StatusLocationScouting
	StatusRecordingPrep
	StatusScriptInProgress
	StatusMaterialPrep
	StatusMaterialFixed
	StatusEditing
	StatusPreview
	StatusPreview1
	StatusRevision1
	StatusMA
	StatusFirstDraft
	StatusRevising
	StatusDelivered
	StatusBilled
)

// statusLabels is the mapping between enum values and the labels written by
// the dashboard. Platto and Liberary share the terminal labels.
var statusLabels = map[Status]string{
	StatusCasting:            "キャスティング中",
	StatusLocationScheduling: "ロケ日調整中",
	StatusLocationScouting:   "ロケハン前",
	StatusRecordingPrep:      "収録準備中",
	StatusScriptInProgress:   "台本作成中",
	StatusMaterialPrep:       "素材準備",
	StatusMaterialFixed:      "素材確定",
	StatusEditing:            "編集中",
	StatusPreview:            "試写中",
	StatusPreview1:           "試写1",
	StatusRevision1:          "修正1",
	StatusMA:                 "MA中",
	StatusFirstDraft:         "初稿完成",
	StatusRevising:           "修正中",
	StatusDelivered:          "完パケ納品",
	StatusBilled:             "請求済",
}

var statusByLabel = func() map[string]Status {
	m := make(map[string]Status, len(statusLabels))
	for s, label := range statusLabels {
		m[label] = s
	}
	return m
}()

// ParseStatus returns StatusUnknown for empty or unrecognised labels.
func ParseStatus(label string) Status {
	if s, ok := statusByLabel[label]; ok {
		return s
	}
	return StatusUnknown
}

// Label returns the display label, or "" for StatusUnknown.
func (s Status) Label() string {
	return statusLabels[s]
}

func (s Status) String() string {
	if label := s.Label(); label != "" {
		return label
	}
	return "unknown"
}

// IsDelivered reports whether the final package has been handed off.
func (s Status) IsDelivered() bool {
	return s == StatusDelivered
}

// IsInProgress is true for every status except delivered and the initial
// script-writing state. Unknown labels count as in progress.
func (s Status) IsInProgress() bool {
	return s != StatusDelivered && s != StatusScriptInProgress
}
