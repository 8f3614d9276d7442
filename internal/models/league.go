package models

// League is a named group of users scoped to one application key.
type League struct {
	ID                 string
	AppKey             string
	Name               string
	Admins             []string
	Users              []string
	Events             []Event // nil when the events were not loaded
	CreatedAtTimestamp int64
	UpdatedAtTimestamp int64
	Fields             Fields

	FieldsJSON string
}

// Role is a league membership kind.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// LeagueReservedKeys are the attributes a client cannot set through a league
// payload's open fields.
var LeagueReservedKeys = []string{
	KeyID, KeyMongoID, KeyAppKey, KeyName, KeyAdmins, KeyUsers, KeyEvents, KeyCreated, KeyUpdated,
}

// PrepareForDB marshals the extra league fields into their storage form.
func (l *League) PrepareForDB() error {
	s, err := l.Fields.Without(LeagueReservedKeys...).Encode()
	if err != nil {
		return err
	}
	l.FieldsJSON = s
	return nil
}

// PrepareForAPI unmarshals the stored extra league fields.
func (l *League) PrepareForAPI() error {
	f, err := DecodeFields(l.FieldsJSON)
	if err != nil {
		return err
	}
	l.Fields = f
	return nil
}

// Summary returns the league without its events, as used in listings.
func (l League) Summary() League {
	l.Events = nil
	return l
}

// MarshalJSON renders the league for clients. The app key is never exposed.
func (l League) MarshalJSON() ([]byte, error) {
	typed := map[string]any{
		KeyID:      l.ID,
		KeyName:    l.Name,
		KeyAdmins:  nonNil(l.Admins),
		KeyUsers:   nonNil(l.Users),
		KeyCreated: l.CreatedAtTimestamp,
		KeyUpdated: l.UpdatedAtTimestamp,
	}
	if l.Events != nil {
		typed[KeyEvents] = l.Events
	}
	return flatten(l.Fields, typed)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
