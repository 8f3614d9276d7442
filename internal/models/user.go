package models

// User represents a registered account. Profile carries whatever extra
// attributes the client sent at registration or in later updates.
type User struct {
	ID           string
	Username     string
	PasswordHash string // never serialized
	Profile      Fields

	// JSON string form of Profile for DB storage
	ProfileJSON string
}

// PrepareForDB marshals the profile into its storage form.
func (u *User) PrepareForDB() error {
	s, err := u.Profile.Without(KeyID, KeyMongoID, KeyUsername, KeyPassword).Encode()
	if err != nil {
		return err
	}
	u.ProfileJSON = s
	return nil
}

// PrepareForAPI unmarshals the stored profile.
func (u *User) PrepareForAPI() error {
	f, err := DecodeFields(u.ProfileJSON)
	if err != nil {
		return err
	}
	u.Profile = f
	return nil
}

// MarshalJSON renders the public profile: every profile field plus id and
// username. The password hash is never part of it.
func (u User) MarshalJSON() ([]byte, error) {
	return flatten(u.Profile.Without(KeyPassword, KeyMongoID), map[string]any{
		KeyID:       u.ID,
		KeyUsername: u.Username,
	})
}
