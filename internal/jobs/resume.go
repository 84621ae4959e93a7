package jobs

import "time"

// Resume is an uploaded resume file together with the extracted profile.
type Resume struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	FilePath     string    `json:"file_path"`
	OriginalName string    `json:"original_name"`
	Profile      *Profile  `json:"profile,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the structured view of a resume.
type Profile struct {
	ContactInfo          ContactInfo   `json:"contactInfo"`
	Summary              string        `json:"summary"`
	Skills               []SkillGroup  `json:"skills"`
	Experience           []Experience  `json:"experience"`
	Education            []Education   `json:"education"`
	TechnicalProficiency []Proficiency `json:"technicalProficiency"`
}

type ContactInfo struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

type SkillGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

type Experience struct {
	Role            string   `json:"role"`
	Company         string   `json:"company"`
	Duration        string   `json:"duration"`
	KeyAchievements []string `json:"keyAchievements"`
}

type Education struct {
	Degree string `json:"degree"`
	School string `json:"school"`
	Year   string `json:"year"`
}

type Proficiency struct {
	Tech  string `json:"tech"`
	Level string `json:"level"`
}

// TopSkills returns up to n skills in profile order.
func (p *Profile) TopSkills(n int) []string {
	if p == nil || n <= 0 {
		return nil
	}
	var out []string
	for _, group := range p.Skills {
		for _, item := range group.Items {
			out = append(out, item)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}
