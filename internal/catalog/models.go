package catalog

import (
	"path/filepath"
	"strings"
)

// Fingerprint algorithms reported by stash boxes.
const (
	AlgorithmPHash  = "PHASH"
	AlgorithmOSHash = "OSHASH"
	AlgorithmMD5    = "MD5"
)

// FileRecord is the comparison-relevant view of one physical file.
type FileRecord struct {
	SceneID    int64
	FileID     int64
	Organized  bool
	Width      int
	Height     int
	VideoCodec string
	Size       int64
	Duration   float64
	Basename   string
	Path       string
	OSHash     string
	PHash      string
	Format     string
}

// Stem returns the basename without its extension.
func (f FileRecord) Stem() string {
	return strings.TrimSuffix(f.Basename, filepath.Ext(f.Basename))
}

// Tag is a catalog tag.
type Tag struct {
	ID   int64
	Name string
}

// Scene is a logical media item backed by zero or more files. Files[0] is
// the primary file.
type Scene struct {
	ID        int64
	Title     string
	Organized bool
	Tags      []Tag
	Files     []FileRecord
}

// HasTag reports whether the scene carries a tag with the given name.
func (s Scene) HasTag(name string) bool {
	for _, tag := range s.Tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

// TagIDs returns the scene tag identifiers in order.
func (s Scene) TagIDs() []int64 {
	ids := make([]int64, 0, len(s.Tags))
	for _, tag := range s.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

// PrimaryFile returns the first file of the scene.
func (s Scene) PrimaryFile() (FileRecord, bool) {
	if len(s.Files) == 0 {
		return FileRecord{}, false
	}
	return s.Files[0], true
}

// StashBox is a configured external index paired with the tag applied to
// scenes it matched. Index is the connection position inside the catalog and
// TagID the resolved identifier of TagName; both are zero until resolved.
type StashBox struct {
	Index   int
	Name    string
	TagName string
	TagID   int64
	URL     string
}

// StashBoxConnection is a stash box endpoint as configured in the catalog.
type StashBoxConnection struct {
	Index    int
	Name     string
	Endpoint string
}

// CandidateFingerprint is one fingerprint submitted to a stash box for a scene.
type CandidateFingerprint struct {
	Algorithm string
	Hash      string
	Duration  float64
}

// Studio is a scraped studio. StoredID is non-zero when the catalog already
// knows the studio.
type Studio struct {
	StoredID     int64
	Name         string
	URL          string
	Image        string
	ParentName   string
	RemoteSiteID string
}

// Performer is a scraped performer. StoredID is non-zero when the catalog
// already knows the performer.
type Performer struct {
	StoredID       int64
	Name           string
	Disambiguation string
	Gender         string
	URLs           []string
	Birthdate      string
	Ethnicity      string
	Country        string
	EyeColor       string
	HairColor      string
	Height         string
	Weight         string
	Measurements   string
	CareerLength   string
	Tattoos        string
	Piercings      string
	Aliases        string
	Details        string
	DeathDate      string
	Images         []string
	RemoteSiteID   string
}

// Candidate is one scraped metadata record returned by a stash box.
type Candidate struct {
	Title        string
	Code         string
	Details      string
	Director     string
	URLs         []string
	Date         string
	Image        string
	Studio       *Studio
	Performers   []Performer
	RemoteSiteID string
	Duration     float64
	Fingerprints []CandidateFingerprint
}

// SceneUpdate carries the metadata fields copied from an accepted candidate.
// Zero values are left untouched by the catalog client.
type SceneUpdate struct {
	Title        string
	Code         string
	Details      string
	Director     string
	Date         string
	URLs         []string
	StudioID     int64
	PerformerIDs []int64
	StashBoxURL  string
	RemoteSiteID string
}
