package auth

// Claims are the identity assertions extracted from a verified ID token.
// They identify which user record to load; authorization decisions are
// never made from claims alone.
type Claims struct {
	Sub             string `json:"sub"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Exp             int64  `json:"exp"`
}

// rawClaims accepts both the standard OIDC claim names and the renamed
// variants some providers emit (first_name/last_name/profile_image_url).
type rawClaims struct {
	Sub             string `json:"sub"`
	Email           string `json:"email"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	Picture         string `json:"picture"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Exp             int64  `json:"exp"`
}

func (r rawClaims) normalize() Claims {
	c := Claims{
		Sub:             r.Sub,
		Email:           r.Email,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		ProfileImageURL: r.ProfileImageURL,
		Exp:             r.Exp,
	}
	if c.FirstName == "" {
		c.FirstName = r.GivenName
	}
	if c.LastName == "" {
		c.LastName = r.FamilyName
	}
	if c.ProfileImageURL == "" {
		c.ProfileImageURL = r.Picture
	}
	return c
}
