package stash

import (
	"strconv"
	"strings"

	"scenekeeper/internal/catalog"
)

const sceneFields = `
  id
  title
  organized
  tags { id name }
  files {
    id
    path
    basename
    size
    duration
    video_codec
    width
    height
    format
    fingerprints { type value }
  }`

const scrapedSceneFields = `
  title
  code
  details
  director
  urls
  date
  image
  remote_site_id
  duration
  fingerprints { algorithm hash duration }
  studio { stored_id name url image remote_site_id parent { name } }
  performers {
    stored_id name disambiguation gender urls birthdate ethnicity country
    eye_color hair_color height weight measurements career_length tattoos
    piercings aliases details death_date images remote_site_id
  }`

type wireTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireFingerprint struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type wireFile struct {
	ID           string            `json:"id"`
	Path         string            `json:"path"`
	Basename     string            `json:"basename"`
	Size         int64             `json:"size"`
	Duration     float64           `json:"duration"`
	VideoCodec   string            `json:"video_codec"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Format       string            `json:"format"`
	Fingerprints []wireFingerprint `json:"fingerprints"`
}

type wireScene struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Organized bool       `json:"organized"`
	Tags      []wireTag  `json:"tags"`
	Files     []wireFile `json:"files"`
}

type wireStudio struct {
	StoredID     *string `json:"stored_id"`
	Name         string  `json:"name"`
	URL          string  `json:"url"`
	Image        string  `json:"image"`
	RemoteSiteID string  `json:"remote_site_id"`
	Parent       *struct {
		Name string `json:"name"`
	} `json:"parent"`
}

type wirePerformer struct {
	StoredID       *string  `json:"stored_id"`
	Name           string   `json:"name"`
	Disambiguation string   `json:"disambiguation"`
	Gender         string   `json:"gender"`
	URLs           []string `json:"urls"`
	Birthdate      string   `json:"birthdate"`
	Ethnicity      string   `json:"ethnicity"`
	Country        string   `json:"country"`
	EyeColor       string   `json:"eye_color"`
	HairColor      string   `json:"hair_color"`
	Height         string   `json:"height"`
	Weight         string   `json:"weight"`
	Measurements   string   `json:"measurements"`
	CareerLength   string   `json:"career_length"`
	Tattoos        string   `json:"tattoos"`
	Piercings      string   `json:"piercings"`
	Aliases        string   `json:"aliases"`
	Details        string   `json:"details"`
	DeathDate      string   `json:"death_date"`
	Images         []string `json:"images"`
	RemoteSiteID   string   `json:"remote_site_id"`
}

type wireScrapedFingerprint struct {
	Algorithm string  `json:"algorithm"`
	Hash      string  `json:"hash"`
	Duration  float64 `json:"duration"`
}

type wireScrapedScene struct {
	Title        string                   `json:"title"`
	Code         string                   `json:"code"`
	Details      string                   `json:"details"`
	Director     string                   `json:"director"`
	URLs         []string                 `json:"urls"`
	Date         string                   `json:"date"`
	Image        string                   `json:"image"`
	RemoteSiteID string                   `json:"remote_site_id"`
	Duration     float64                  `json:"duration"`
	Fingerprints []wireScrapedFingerprint `json:"fingerprints"`
	Studio       *wireStudio              `json:"studio"`
	Performers   []wirePerformer          `json:"performers"`
}

func parseID(value string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func parseStoredID(value *string) int64 {
	if value == nil {
		return 0
	}
	return parseID(*value)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatIDs(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, formatID(id))
	}
	return out
}

func (t wireTag) toCatalog() catalog.Tag {
	return catalog.Tag{ID: parseID(t.ID), Name: t.Name}
}

func (s wireScene) toCatalog() catalog.Scene {
	scene := catalog.Scene{
		ID:        parseID(s.ID),
		Title:     s.Title,
		Organized: s.Organized,
		Tags:      make([]catalog.Tag, 0, len(s.Tags)),
		Files:     make([]catalog.FileRecord, 0, len(s.Files)),
	}
	for _, tag := range s.Tags {
		scene.Tags = append(scene.Tags, tag.toCatalog())
	}
	for _, f := range s.Files {
		record := catalog.FileRecord{
			SceneID:    scene.ID,
			FileID:     parseID(f.ID),
			Organized:  s.Organized,
			Width:      f.Width,
			Height:     f.Height,
			VideoCodec: f.VideoCodec,
			Size:       f.Size,
			Duration:   f.Duration,
			Basename:   f.Basename,
			Path:       f.Path,
			Format:     f.Format,
		}
		for _, fp := range f.Fingerprints {
			switch strings.ToLower(fp.Type) {
			case "phash":
				record.PHash = fp.Value
			case "oshash":
				record.OSHash = fp.Value
			}
		}
		scene.Files = append(scene.Files, record)
	}
	return scene
}

func (s wireScrapedScene) toCatalog() catalog.Candidate {
	candidate := catalog.Candidate{
		Title:        s.Title,
		Code:         s.Code,
		Details:      s.Details,
		Director:     s.Director,
		URLs:         s.URLs,
		Date:         s.Date,
		Image:        s.Image,
		RemoteSiteID: s.RemoteSiteID,
		Duration:     s.Duration,
	}
	for _, fp := range s.Fingerprints {
		candidate.Fingerprints = append(candidate.Fingerprints, catalog.CandidateFingerprint{
			Algorithm: strings.ToUpper(fp.Algorithm),
			Hash:      fp.Hash,
			Duration:  fp.Duration,
		})
	}
	if s.Studio != nil {
		studio := &catalog.Studio{
			StoredID:     parseStoredID(s.Studio.StoredID),
			Name:         s.Studio.Name,
			URL:          s.Studio.URL,
			Image:        s.Studio.Image,
			RemoteSiteID: s.Studio.RemoteSiteID,
		}
		if s.Studio.Parent != nil {
			studio.ParentName = s.Studio.Parent.Name
		}
		candidate.Studio = studio
	}
	for _, p := range s.Performers {
		candidate.Performers = append(candidate.Performers, catalog.Performer{
			StoredID:       parseStoredID(p.StoredID),
			Name:           p.Name,
			Disambiguation: p.Disambiguation,
			Gender:         p.Gender,
			URLs:           p.URLs,
			Birthdate:      p.Birthdate,
			Ethnicity:      p.Ethnicity,
			Country:        p.Country,
			EyeColor:       p.EyeColor,
			HairColor:      p.HairColor,
			Height:         p.Height,
			Weight:         p.Weight,
			Measurements:   p.Measurements,
			CareerLength:   p.CareerLength,
			Tattoos:        p.Tattoos,
			Piercings:      p.Piercings,
			Aliases:        p.Aliases,
			Details:        p.Details,
			DeathDate:      p.DeathDate,
			Images:         p.Images,
			RemoteSiteID:   p.RemoteSiteID,
		})
	}
	return candidate
}

// sceneFilterInput renders a SceneFilterType variable.
func sceneFilterInput(filter catalog.SceneFilter) map[string]any {
	out := map[string]any{}
	if filter.Organized != nil {
		out["organized"] = *filter.Organized
	}
	if len(filter.TagIDs) > 0 || len(filter.ExcludedTagIDs) > 0 {
		modifier := filter.TagModifier
		if modifier == "" {
			modifier = catalog.TagsIncludes
		}
		criterion := map[string]any{
			"value":    formatIDs(filter.TagIDs),
			"modifier": string(modifier),
		}
		if len(filter.ExcludedTagIDs) > 0 {
			criterion["excludes"] = formatIDs(filter.ExcludedTagIDs)
		}
		out["tags"] = criterion
	}
	if filter.FileCountGreaterThan != nil {
		out["file_count"] = map[string]any{"value": *filter.FileCountGreaterThan, "modifier": "GREATER_THAN"}
	}
	if filter.PathIncludes != "" {
		out["path"] = map[string]any{"value": filter.PathIncludes, "modifier": "INCLUDES"}
	}
	if filter.MissingPHash {
		out["phash_distance"] = map[string]any{"value": "", "modifier": "IS_NULL"}
	}
	return out
}

func performerInput(p catalog.Performer) map[string]any {
	input := map[string]any{"name": p.Name}
	setString(input, "disambiguation", p.Disambiguation)
	if gender := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(p.Gender), " ", "_")); gender != "" {
		input["gender"] = gender
	}
	if len(p.URLs) > 0 {
		input["urls"] = p.URLs
	}
	setString(input, "birthdate", p.Birthdate)
	setString(input, "ethnicity", p.Ethnicity)
	setString(input, "country", p.Country)
	setString(input, "eye_color", p.EyeColor)
	setString(input, "hair_color", p.HairColor)
	if cm := leadingInt(p.Height); cm > 0 {
		input["height_cm"] = cm
	}
	if kg := leadingInt(p.Weight); kg > 0 {
		input["weight"] = kg
	}
	setString(input, "measurements", p.Measurements)
	setString(input, "career_length", p.CareerLength)
	setString(input, "tattoos", p.Tattoos)
	setString(input, "piercings", p.Piercings)
	setString(input, "details", p.Details)
	setString(input, "death_date", p.DeathDate)
	if aliases := splitAliases(p.Aliases); len(aliases) > 0 {
		input["alias_list"] = aliases
	}
	if len(p.Images) > 0 {
		input["image"] = p.Images[0]
	}
	return input
}

func studioInput(s catalog.Studio) map[string]any {
	input := map[string]any{"name": s.Name}
	setString(input, "url", s.URL)
	setString(input, "image", s.Image)
	return input
}

func setString(m map[string]any, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		m[key] = value
	}
}

// leadingInt parses the digits at the start of values like "170" or "55kg".
func leadingInt(value string) int {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0
	}
	return n
}

func splitAliases(value string) []string {
	var out []string
	for _, alias := range strings.Split(value, ",") {
		if alias = strings.TrimSpace(alias); alias != "" {
			out = append(out, alias)
		}
	}
	return out
}
