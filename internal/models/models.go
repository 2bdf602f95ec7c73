package models

import "time"

// LibraryFolder is a node of the media library tree. Folder flags apply to
// everything beneath them; SuppressDuplicateWarning is a boolean OR up the
// ancestor path.
type LibraryFolder struct {
	ID                       string `gorm:"type:uuid;primaryKey"`
	ParentID                 string `gorm:"type:uuid;index"`
	Name                     string `gorm:"index"`
	SuppressDuplicateWarning bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// LibraryItem is an audio asset in the media library. Sequence instances
// reference it through their OriginalID.
type LibraryItem struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	FolderID  string `gorm:"type:uuid;index"`
	Title     string `gorm:"index"`
	Artist    string `gorm:"index"`
	Kind      string `gorm:"type:varchar(16)"`
	Duration  time.Duration
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShowSequence is a persisted show: an ordered list of sequence rows.
type ShowSequence struct {
	ID        string        `gorm:"type:uuid;primaryKey"`
	Name      string        `gorm:"uniqueIndex"`
	Rows      []SequenceRow `gorm:"foreignKey:ShowSequenceID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SequenceRowType discriminates persisted sequence rows.
type SequenceRowType string

const (
	RowPlayable SequenceRowType = "playable"
	RowMarker   SequenceRowType = "marker"
)

// SequenceRow persists one element of a show sequence. Playable rows carry a
// denormalized copy of the library metadata so a show survives library edits;
// marker rows carry the activation time and marker kind.
type SequenceRow struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	ShowSequenceID string          `gorm:"type:uuid;index"`
	Position       int             `gorm:"index"`
	RowType        SequenceRowType `gorm:"type:varchar(16)"`

	LibraryItemID string `gorm:"type:uuid"`
	Title         string
	Artist        string
	Kind          string `gorm:"type:varchar(16)"`
	Duration      time.Duration

	ActivatesAt *time.Time
	MarkerKind  string `gorm:"type:varchar(8)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayoutHistory is the append-only log of what actually aired.
type PlayoutHistory struct {
	ID       string    `gorm:"type:uuid;primaryKey"`
	ItemID   string    `gorm:"type:uuid;index"`
	Artist   string    `gorm:"index"`
	Title    string    `gorm:"index"`
	PlayedAt time.Time `gorm:"index"`
}

// StationSettings stores the active playout policy.
type StationSettings struct {
	ID                      string `gorm:"type:uuid;primaryKey"`
	ArtistSeparationMinutes int
	TitleSeparationMinutes  int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// All lists every model for migration.
func All() []any {
	return []any{
		&LibraryFolder{},
		&LibraryItem{},
		&ShowSequence{},
		&SequenceRow{},
		&PlayoutHistory{},
		&StationSettings{},
	}
}
