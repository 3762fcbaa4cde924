package api

import (
	"github.com/hugr-lab/optimade-go/collection"
)

// Provider describes the database provider in every response.
type Provider struct {
	Prefix       string `json:"prefix"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Homepage     string `json:"homepage,omitempty"`
	IndexBaseURL string `json:"index_base_url,omitempty"`
}

type queryMeta struct {
	Representation string `json:"representation"`
}

type meta struct {
	Query             queryMeta `json:"query"`
	APIVersion        string    `json:"api_version"`
	TimeStamp         string    `json:"time_stamp"`
	DataReturned      int       `json:"data_returned"`
	DataAvailable     int       `json:"data_available"`
	MoreDataAvailable bool      `json:"more_data_available"`
	Provider          Provider  `json:"provider"`
	Warnings          []warning `json:"warnings,omitempty"`
}

type warning struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

type links struct {
	Next *string `json:"next"`
}

type listResponse struct {
	Data  []collection.EntryResource `json:"data"`
	Meta  meta                       `json:"meta"`
	Links links                      `json:"links"`
}

type singleResponse struct {
	Data  *collection.EntryResource `json:"data"`
	Meta  meta                      `json:"meta"`
	Links links                     `json:"links"`
}

type errorObject struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type errorResponse struct {
	Errors []errorObject `json:"errors"`
	Meta   meta          `json:"meta"`
}

type infoResponse struct {
	Data any  `json:"data"`
	Meta meta `json:"meta"`
}

type apiVersion struct {
	URL     string `json:"url"`
	Version string `json:"version"`
}

type baseInfoAttributes struct {
	APIVersion           string              `json:"api_version"`
	AvailableAPIVersions []apiVersion        `json:"available_api_versions"`
	Formats              []string            `json:"formats"`
	EntryTypesByFormat   map[string][]string `json:"entry_types_by_format"`
	AvailableEndpoints   []string            `json:"available_endpoints"`
	IsIndex              bool                `json:"is_index,omitempty"`
}

type baseInfoResource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    baseInfoAttributes      `json:"attributes"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

// relationship points an index meta-database at one of its child databases.
type relationship struct {
	Data relationshipData `json:"data"`
}

type relationshipData struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type propertyInfo struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	Sortable    bool   `json:"sortable"`
}

type entryInfoResource struct {
	Description          string                  `json:"description"`
	Properties           map[string]propertyInfo `json:"properties"`
	Formats              []string                `json:"formats"`
	OutputFieldsByFormat map[string][]string     `json:"output_fields_by_format"`
}
