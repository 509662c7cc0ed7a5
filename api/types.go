package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/schema"
	"github.com/relloyd/obspipe/stream"
)

// Session holds the credentials returned by a successful authentication.
// It lives for one run and is passed explicitly to every client call.
type Session struct {
	Token  string
	UserID string
}

// Headers returns the headers required on every authenticated call.
func (s Session) Headers() http.Header {
	h := make(http.Header)
	// The API expects lower case header names so bypass canonicalisation.
	h[constants.ApiHeaderUserID] = []string{s.UserID}
	h[constants.ApiHeaderToken] = []string{s.Token}
	h.Set("Content-Type", constants.ApiContentType)
	return h
}

func (s Session) valid() bool {
	return s.Token != "" && s.UserID != ""
}

// String hides the token.
func (s Session) String() string {
	return fmt.Sprintf("user_id=%v token=xxxxx", s.UserID)
}

type authRequest struct {
	UserLogonID string `json:"user_logon_id"`
	Password    string `json:"password"`
}

type authResponse struct {
	Token  string          `json:"token"`
	UserID json.RawMessage `json:"user_id"`
}

// userID returns the user id whether the API sent it as a JSON string or number.
func (r authResponse) userID() string {
	raw := bytes.TrimSpace(r.UserID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type detailsRequest struct {
	SiteID   string `json:"site_id"`
	FromDate string `json:"from_date"`
	ThruDate string `json:"thru_date"`
}

// SummaryPayload is the decoded observation summary.
// Present is false when the response had no observation_summary key, which makes the payload invalid for storage.
type SummaryPayload struct {
	Raw     []byte
	Present bool
	Records []stream.Record
}

// Valid reports whether p can be stored.
func (p *SummaryPayload) Valid() bool {
	return p != nil && p.Present
}

// DetailBundle holds the named collections of one detail response.
// A collection can be absent, present but empty, or present with records.
type DetailBundle struct {
	Raw         []byte
	collections map[string][]stream.Record
}

// NewDetailBundle builds a bundle from already decoded collections.
func NewDetailBundle(collections map[string][]stream.Record) *DetailBundle {
	if collections == nil {
		collections = make(map[string][]stream.Record)
	}
	return &DetailBundle{collections: collections}
}

// Collection returns the records of name and whether the key was present in the response.
func (b *DetailBundle) Collection(name string) ([]stream.Record, bool) {
	if b == nil {
		return nil, false
	}
	r, ok := b.collections[name]
	return r, ok
}

// Names returns the collections present in the bundle in load order.
func (b *DetailBundle) Names() []string {
	retval := make([]string, 0, len(constants.DetailCollections))
	for _, name := range constants.DetailCollections {
		if _, ok := b.Collection(name); ok {
			retval = append(retval, name)
		}
	}
	return retval
}

// Site is one row of the observation summary.
type Site struct {
	SiteID            int64
	HcoID             *int64
	ProgramID         int64
	SiteName          string
	ProgramName       string
	HasActiveLicense  bool
	ObservationsFound int64
	UpdatedFrom       time.Time
	UpdatedThru       time.Time
}

// SiteFromRecord extracts a Site from a summary record.
// Only site_id and has_active_license must be usable; other fields are best effort.
func SiteFromRecord(r stream.Record) (Site, error) {
	s := Site{}
	v, ok := r.LookupData(constants.SiteIDFieldName)
	if !ok {
		return s, fmt.Errorf("summary record is missing %v", constants.SiteIDFieldName)
	}
	id, err := schema.ToInt64(v)
	if err != nil {
		return s, fmt.Errorf("bad %v %v: %w", constants.SiteIDFieldName, v, err)
	}
	s.SiteID = id
	lic, ok := r.LookupData(constants.HasActiveLicenseField)
	if !ok {
		return s, fmt.Errorf("summary record for site %v is missing %v", id, constants.HasActiveLicenseField)
	}
	if s.HasActiveLicense, err = schema.ToBool(lic); err != nil {
		return s, fmt.Errorf("bad %v for site %v: %w", constants.HasActiveLicenseField, id, err)
	}
	if v, ok := r.LookupData("hco_id"); ok && v != nil {
		if hco, err := schema.ToInt64(v); err == nil {
			s.HcoID = &hco
		}
	}
	if v, ok := r.LookupData("program_id"); ok {
		s.ProgramID, _ = schema.ToInt64(v)
	}
	if v, ok := r.LookupData("observations_found"); ok {
		s.ObservationsFound, _ = schema.ToInt64(v)
	}
	if v, ok := r.LookupData("site_name"); ok && v != nil {
		s.SiteName = fmt.Sprintf("%v", v)
	}
	if v, ok := r.LookupData("program_name"); ok && v != nil {
		s.ProgramName = fmt.Sprintf("%v", v)
	}
	if v, ok := r.LookupData("updated_from"); ok {
		s.UpdatedFrom, _ = schema.ToTime(v)
	}
	if v, ok := r.LookupData("updated_thru"); ok {
		s.UpdatedThru, _ = schema.ToTime(v)
	}
	return s, nil
}
