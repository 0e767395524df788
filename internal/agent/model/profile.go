package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Flex is a profile value the model may emit either as a JSON number or as a
// string such as "30-40" or "50,000".
type Flex string

func (f *Flex) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex value: %w", err)
	}
	*f = Flex(n.String())
	return nil
}

// Number parses the value as a float, ignoring thousands separators.
func (f Flex) Number() (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(string(f)), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func FlexOf(v float64) *Flex {
	f := Flex(strconv.FormatFloat(v, 'f', -1, 64))
	return &f
}

// CitizenProfile holds facts extracted from free text. A field is set only
// when the citizen stated it explicitly.
type CitizenProfile struct {
	Age               *Flex    `json:"age,omitempty" jsonschema:"description=Age in years, only if stated"`
	Income            *Flex    `json:"income,omitempty" jsonschema:"description=Annual income in rupees, only if stated"`
	Category          *string  `json:"category,omitempty" jsonschema:"description=Social category such as SC/ST/OBC/General"`
	Location          *string  `json:"location,omitempty"`
	EducationLevel    *string  `json:"education_level,omitempty"`
	EmploymentStatus  *string  `json:"employment_status,omitempty"`
	FamilySize        *Flex    `json:"family_size,omitempty"`
	SpecialConditions []string `json:"special_conditions,omitempty" jsonschema:"description=Disability, widowhood and similar conditions"`
}

// IsEmpty reports whether no field was extracted.
func (p *CitizenProfile) IsEmpty() bool {
	return p == nil || (p.Age == nil && p.Income == nil && p.Category == nil && p.Location == nil &&
		p.EducationLevel == nil && p.EmploymentStatus == nil && p.FamilySize == nil && len(p.SpecialConditions) == 0)
}

// Merge returns a new profile where non-nil fields of over replace those of p.
func (p *CitizenProfile) Merge(over *CitizenProfile) *CitizenProfile {
	out := CitizenProfile{}
	if p != nil {
		out = *p
		out.SpecialConditions = append([]string(nil), p.SpecialConditions...)
	}
	if over == nil {
		return &out
	}
	if over.Age != nil {
		out.Age = over.Age
	}
	if over.Income != nil {
		out.Income = over.Income
	}
	if over.Category != nil {
		out.Category = over.Category
	}
	if over.Location != nil {
		out.Location = over.Location
	}
	if over.EducationLevel != nil {
		out.EducationLevel = over.EducationLevel
	}
	if over.EmploymentStatus != nil {
		out.EmploymentStatus = over.EmploymentStatus
	}
	if over.FamilySize != nil {
		out.FamilySize = over.FamilySize
	}
	if len(over.SpecialConditions) > 0 {
		out.SpecialConditions = append([]string(nil), over.SpecialConditions...)
	}
	return &out
}

// Key is a deterministic serialization used in cache fingerprints.
func (p *CitizenProfile) Key() string {
	if p.IsEmpty() {
		return "{}"
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Facts lists the explicitly known values as "label: value" pairs, in a fixed order.
func (p *CitizenProfile) Facts() []string {
	if p == nil {
		return nil
	}
	var out []string
	add := func(label string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, label+": "+v)
		}
	}
	if p.Age != nil {
		add("age", string(*p.Age))
	}
	if p.Income != nil {
		add("income", string(*p.Income))
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.EducationLevel != nil {
		add("education", *p.EducationLevel)
	}
	if p.EmploymentStatus != nil {
		add("employment", *p.EmploymentStatus)
	}
	if p.FamilySize != nil {
		add("family size", string(*p.FamilySize))
	}
	if len(p.SpecialConditions) > 0 {
		add("special conditions", strings.Join(p.SpecialConditions, ", "))
	}
	return out
}

// Summary renders Facts on one line, or a placeholder when nothing is known.
func (p *CitizenProfile) Summary() string {
	facts := p.Facts()
	if len(facts) == 0 {
		return "no profile details provided"
	}
	return strings.Join(facts, ", ")
}

// Sanitize drops numeric fields outside accepted ranges and returns one warning per drop.
func (p *CitizenProfile) Sanitize() []string {
	if p == nil {
		return nil
	}
	var warnings []string
	if p.Age != nil {
		if v, ok := p.Age.Number(); ok {
			if err := ValidateAge(int(v)); err != nil {
				warnings = append(warnings, err.Error())
				p.Age = nil
			}
		}
	}
	if p.Income != nil {
		if v, ok := p.Income.Number(); ok {
			if err := ValidateIncome(v); err != nil {
				warnings = append(warnings, err.Error())
				p.Income = nil
			}
		}
	}
	if p.FamilySize != nil {
		if v, ok := p.FamilySize.Number(); ok {
			if err := ValidateFamilySize(int(v)); err != nil {
				warnings = append(warnings, err.Error())
				p.FamilySize = nil
			}
		}
	}
	return warnings
}

// UserProfile is the optional demographic mapping a front end submits with a request.
type UserProfile struct {
	Age              *int     `json:"age,omitempty"`
	Income           *float64 `json:"income,omitempty"`
	Location         *string  `json:"location,omitempty"`
	EmploymentStatus *string  `json:"employment_status,omitempty"`
	FamilySize       *int     `json:"family_size,omitempty"`
	EducationLevel   *string  `json:"education_level,omitempty"`
	SocialCategory   *string  `json:"social_category,omitempty"`
}

// Sanitize drops invalid fields and returns one warning per drop.
func (u *UserProfile) Sanitize() []string {
	if u == nil {
		return nil
	}
	var warnings []string
	if u.Age != nil {
		if err := ValidateAge(*u.Age); err != nil {
			warnings = append(warnings, err.Error())
			u.Age = nil
		}
	}
	if u.Income != nil {
		if err := ValidateIncome(*u.Income); err != nil {
			warnings = append(warnings, err.Error())
			u.Income = nil
		}
	}
	if u.FamilySize != nil {
		if err := ValidateFamilySize(*u.FamilySize); err != nil {
			warnings = append(warnings, err.Error())
			u.FamilySize = nil
		}
	}
	for _, s := range []**string{&u.Location, &u.EmploymentStatus, &u.EducationLevel, &u.SocialCategory} {
		if *s != nil && strings.TrimSpace(**s) == "" {
			*s = nil
		}
	}
	return warnings
}

// Citizen converts the caller profile into the pipeline's profile shape.
func (u *UserProfile) Citizen() *CitizenProfile {
	if u == nil {
		return nil
	}
	p := &CitizenProfile{
		Category:         u.SocialCategory,
		Location:         u.Location,
		EducationLevel:   u.EducationLevel,
		EmploymentStatus: u.EmploymentStatus,
	}
	if u.Age != nil {
		p.Age = FlexOf(float64(*u.Age))
	}
	if u.Income != nil {
		p.Income = FlexOf(*u.Income)
	}
	if u.FamilySize != nil {
		p.FamilySize = FlexOf(float64(*u.FamilySize))
	}
	return p
}

// Merge overlays non-nil fields of over onto a copy of u.
func (u *UserProfile) Merge(over *UserProfile) *UserProfile {
	out := UserProfile{}
	if u != nil {
		out = *u
	}
	if over == nil {
		return &out
	}
	if over.Age != nil {
		out.Age = over.Age
	}
	if over.Income != nil {
		out.Income = over.Income
	}
	if over.Location != nil {
		out.Location = over.Location
	}
	if over.EmploymentStatus != nil {
		out.EmploymentStatus = over.EmploymentStatus
	}
	if over.FamilySize != nil {
		out.FamilySize = over.FamilySize
	}
	if over.EducationLevel != nil {
		out.EducationLevel = over.EducationLevel
	}
	if over.SocialCategory != nil {
		out.SocialCategory = over.SocialCategory
	}
	return &out
}
