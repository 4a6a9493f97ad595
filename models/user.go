package models

// SiteCredential is the single shared password protecting the site. Exactly
// one of Password or Hash is expected to be set; Hash is a bcrypt hash.
type SiteCredential struct {
	Password string
	Hash     string
}

func (c SiteCredential) Configured() bool {
	return c.Password != "" || c.Hash != ""
}
