package show

// Patch holds fields to merge onto a known show. A nil field is "not supplied".
type Patch struct {
	Rank        *int
	Title       *string
	Image       *string
	Rating      *float64
	Votes       *int
	ReleaseDate *string
	Plot        *string
	Genres      []string
	Episodes    *int
	Seasons     *int
	Trailer     *string
}

// IsEmpty reports whether the patch supplies nothing.
func (p Patch) IsEmpty() bool {
	return p.Rank == nil && p.Title == nil && p.Image == nil && p.Rating == nil &&
		p.Votes == nil && p.ReleaseDate == nil && p.Plot == nil && p.Genres == nil &&
		p.Episodes == nil && p.Seasons == nil && p.Trailer == nil
}

// ApplyTo shallow-merges the supplied fields onto s.
func (p Patch) ApplyTo(s *Show) {
	if p.Rank != nil {
		s.Rank = cloneInt(p.Rank)
	}
	if p.Title != nil && *p.Title != "" {
		s.Title = *p.Title
	}
	if p.Image != nil {
		s.Image = cloneString(p.Image)
	}
	if p.Rating != nil {
		s.Rating = cloneFloat(p.Rating)
	}
	if p.Votes != nil {
		s.Votes = cloneInt(p.Votes)
	}
	if p.ReleaseDate != nil {
		s.ReleaseDate = cloneString(p.ReleaseDate)
	}
	if p.Plot != nil {
		s.Plot = cloneString(p.Plot)
	}
	if p.Genres != nil {
		s.Genres = append(make([]string, 0, len(p.Genres)), p.Genres...)
	}
	if p.Episodes != nil {
		s.Episodes = cloneInt(p.Episodes)
	}
	if p.Seasons != nil {
		s.Seasons = cloneInt(p.Seasons)
	}
	if p.Trailer != nil {
		s.Trailer = cloneString(p.Trailer)
	}
}
