package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/collection"
)

// formats lists the supported response formats.
var formats = []string{"json"}

func (s *Server) collection(r *http.Request) (*collection.EntryCollection, error) {
	name := mux.Vars(r)["entry"]
	c, ok := s.collections[name]
	if !ok {
		return nil, &NotFoundError{Path: r.URL.Path}
	}
	return c, nil
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	params, err := listingParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := c.Find(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	m := s.meta(r, res.DataReturned, res.DataAvailable, res.MoreDataAvailable)
	m.Warnings = omittedWarning(res.OmittedFields)

	resp := listResponse{Data: res.Entries, Meta: m}
	if res.MoreDataAvailable {
		next := s.nextLink(r, res.Offset+res.Limit)
		resp.Links.Next = &next
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleSingleEntry(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := c.FindOne(r.Context(), mux.Vars(r)["id"], collection.SingleEntryParams{
		ResponseFields: q.Get("response_fields"),
		ResponseFormat: q.Get("response_format"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	m := s.meta(r, res.DataReturned, res.DataAvailable, false)
	m.Warnings = omittedWarning(res.OmittedFields)
	s.writeJSON(w, r, http.StatusOK, singleResponse{Data: res.Entry, Meta: m})
}

func (s *Server) handleBaseInfo(w http.ResponseWriter, r *http.Request) {
	endpoints := append([]string{"info"}, s.names...)
	data := baseInfoResource{
		ID:   "/",
		Type: "info",
		Attributes: baseInfoAttributes{
			APIVersion: "v" + s.apiVersion,
			AvailableAPIVersions: []apiVersion{{
				URL:     s.base(r) + "/optimade/v" + s.apiVersion,
				Version: s.apiVersion,
			}},
			Formats:            formats,
			EntryTypesByFormat: map[string][]string{"json": s.names},
			AvailableEndpoints: endpoints,
		},
	}
	if s.index != nil {
		data.Attributes.IsIndex = true
		data.Relationships = map[string]relationship{
			"default": {Data: relationshipData{Type: "child", ID: s.index.DefaultChild}},
		}
	}
	s.writeJSON(w, r, http.StatusOK, infoResponse{
		Data: data,
		Meta: s.meta(r, 1, 1, false),
	})
}

func (s *Server) handleEntryInfo(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e := c.EntryType()

	schema := e.ArrowSchema()
	props := make(map[string]propertyInfo, schema.NumFields())
	for _, f := range schema.Fields() {
		desc, _ := f.Metadata.GetValue(catalog.MetadataDescription)
		field, _ := e.Field(f.Name)
		props[f.Name] = propertyInfo{
			Description: desc,
			Type:        catalog.TypeName(f.Type),
			Sortable:    field.Sortable,
		}
	}

	s.writeJSON(w, r, http.StatusOK, infoResponse{
		Data: entryInfoResource{
			Description:          e.Description(),
			Properties:           props,
			Formats:              formats,
			OutputFieldsByFormat: map[string][]string{"json": e.AllFields()},
		},
		Meta: s.meta(r, 1, 1, false),
	})
}

// listingParams reads the listing query parameters. email_address is accepted and ignored.
func listingParams(q url.Values) (collection.ListingParams, error) {
	p := collection.ListingParams{
		Filter:         q.Get("filter"),
		Sort:           q.Get("sort"),
		ResponseFields: q.Get("response_fields"),
		ResponseFormat: q.Get("response_format"),
	}
	var err error
	if p.PageLimit, err = intParam(q, "page_limit"); err != nil {
		return p, err
	}
	if p.PageOffset, err = intParam(q, "page_offset"); err != nil {
		return p, err
	}
	return p, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &collection.ParameterError{Name: name, Reason: strconv.Quote(v) + " is not an integer"}
	}
	return n, nil
}

func (s *Server) meta(r *http.Request, returned, available int, more bool) meta {
	representation := r.URL.Path
	if r.URL.RawQuery != "" {
		representation += "?" + r.URL.RawQuery
	}
	return meta{
		Query:             queryMeta{Representation: representation},
		APIVersion:        "v" + s.apiVersion,
		TimeStamp:         s.now().UTC().Format(time.RFC3339),
		DataReturned:      returned,
		DataAvailable:     available,
		MoreDataAvailable: more,
		Provider:          s.provider,
	}
}

// base returns the configured base URL or the one the request was made to.
func (s *Server) base(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) nextLink(r *http.Request, offset int) string {
	q := r.URL.Query()
	q.Set("page_offset", strconv.Itoa(offset))
	return s.base(r) + r.URL.Path + "?" + q.Encode()
}

func omittedWarning(omitted []string) []warning {
	if len(omitted) == 0 {
		return nil
	}
	return []warning{{
		Type:   "warning",
		Detail: "fields omitted by response_fields: " + strings.Join(omitted, ", "),
	}}
}
