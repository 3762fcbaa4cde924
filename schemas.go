package optimade

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/optimade-go/catalog"
)

// Built-in entry endpoints.
const (
	Structures = "structures"
	References = "references"
	Links      = "links"
)

var (
	stringType  = arrow.BinaryTypes.String
	intType     = arrow.PrimitiveTypes.Int64
	floatType   = arrow.PrimitiveTypes.Float64
	timeType    = timestampType
	stringsType = arrow.ListOf(arrow.BinaryTypes.String)
	floatsType  = arrow.ListOf(arrow.PrimitiveTypes.Float64)
	vectorsType = arrow.ListOf(arrow.ListOf(arrow.PrimitiveTypes.Float64))
)

// commonFields are shared by every entry type.
func commonFields(entryType string) []FieldDef {
	return []FieldDef{
		{Name: "id", Type: stringType, Sortable: true, Description: "An entry's ID."},
		{Name: "type", Type: stringType, Description: "The name of the type of an entry; always " + entryType + "."},
		{Name: "immutable_id", Type: stringType, Sortable: true, Description: "The entry's immutable ID."},
		{Name: "last_modified", Type: timeType, Sortable: true, Description: "Date and time representing when the entry was last modified."},
	}
}

// structureFields are the structure properties. Aliases follow the storage
// layout of the example database: chemical formulas share pretty_formula.
func structureFields() []FieldDef {
	species := arrow.ListOf(arrow.StructOf(
		arrow.Field{Name: "name", Type: stringType, Nullable: true},
		arrow.Field{Name: "chemical_symbols", Type: stringsType, Nullable: true},
		arrow.Field{Name: "concentration", Type: floatsType, Nullable: true},
		arrow.Field{Name: "mass", Type: floatType, Nullable: true},
		arrow.Field{Name: "original_name", Type: stringType, Nullable: true},
	))

	fields := commonFields(Structures)
	fields[0].Alias = "task_id"
	return append(fields,
		FieldDef{Name: "elements", Type: stringsType, Description: "Names of the different elements present in the structure."},
		FieldDef{Name: "nelements", Type: intType, Sortable: true, Description: "Number of different elements in the structure."},
		FieldDef{Name: "elements_ratios", Type: floatsType, Description: "Relative proportions of the different elements."},
		FieldDef{Name: "chemical_formula_descriptive", Alias: "pretty_formula", Type: stringType, Sortable: true,
			Description: "The chemical formula for a structure as a string in a form chosen by the provider."},
		FieldDef{Name: "chemical_formula_reduced", Alias: "pretty_formula", Type: stringType, Sortable: true,
			Description: "The reduced chemical formula for a structure."},
		FieldDef{Name: "chemical_formula_hill", Type: stringType, Sortable: true, Description: "The chemical formula in Hill form."},
		FieldDef{Name: "chemical_formula_anonymous", Alias: "formula_anonymous", Type: stringType, Sortable: true,
			Description: "The anonymous formula: the reduced formula with elements replaced by A, B, C, ..."},
		FieldDef{Name: "dimension_types", Type: arrow.ListOf(intType), Description: "Periodicity along each lattice vector."},
		FieldDef{Name: "lattice_vectors", Type: vectorsType, Description: "The three lattice vectors in Cartesian coordinates, in angstrom."},
		FieldDef{Name: "cartesian_site_positions", Type: vectorsType, Description: "Cartesian positions of each site, in angstrom."},
		FieldDef{Name: "nsites", Type: intType, Sortable: true, Description: "Number of sites."},
		FieldDef{Name: "species_at_sites", Type: stringsType, Description: "Name of the species at each site."},
		FieldDef{Name: "species", Type: species, Description: "The species present in the structure."},
		FieldDef{Name: "assemblies", Type: arrow.ListOf(arrow.StructOf(
			arrow.Field{Name: "sites_in_groups", Type: arrow.ListOf(arrow.ListOf(intType)), Nullable: true},
			arrow.Field{Name: "group_probabilities", Type: floatsType, Nullable: true},
		)), Description: "Groups of sites that are statistically correlated."},
		FieldDef{Name: "structure_features", Type: stringsType, Description: "Special features of the structure."},
	)
}

func referenceFields() []FieldDef {
	person := arrow.ListOf(arrow.StructOf(
		arrow.Field{Name: "name", Type: stringType, Nullable: true},
		arrow.Field{Name: "firstname", Type: stringType, Nullable: true},
		arrow.Field{Name: "lastname", Type: stringType, Nullable: true},
	))

	fields := append(commonFields(References),
		FieldDef{Name: "authors", Type: person, Description: "List of people that are authors of the reference."},
		FieldDef{Name: "editors", Type: person, Description: "List of people that are editors of the reference."},
		FieldDef{Name: "doi", Type: stringType, Sortable: true, Description: "The digital object identifier of the reference."},
		FieldDef{Name: "url", Type: stringType, Description: "The URL of the reference."},
	)
	// BibTeX fields
	for _, name := range []string{
		"address", "annote", "booktitle", "chapter", "crossref", "edition", "howpublished",
		"institution", "journal", "key", "month", "note", "number", "organization", "pages",
		"publisher", "school", "series", "title", "bib_type", "volume", "year",
	} {
		fields = append(fields, FieldDef{Name: name, Type: stringType, Sortable: true, Description: "Meaning of property matches the BibTeX specification."})
	}
	return fields
}

func linkFields() []FieldDef {
	return append(commonFields(Links),
		FieldDef{Name: "name", Type: stringType, Sortable: true, Description: "Human-readable name for the OPTIMADE API implementation."},
		FieldDef{Name: "description", Type: stringType, Description: "Human-readable description for the OPTIMADE API implementation."},
		FieldDef{Name: "base_url", Type: stringType, Description: "JSON API links object pointing to the base URL of the implementation."},
		FieldDef{Name: "homepage", Type: stringType, Description: "Link to the homepage of the database."},
		FieldDef{Name: "link_type", Type: stringType, Sortable: true, Description: "The link type: child, root, external or providers."},
	)
}

// NewCatalogue builds the catalogue of the built-in entry types (structures,
// references, links) with the given provider fields added per endpoint.
// Provider field names are given without the prefix.
func NewCatalogue(providerPrefix string, providerFields map[string][]FieldDef) (catalog.Catalogue, error) {
	for endpoint := range providerFields {
		if endpoint != Structures && endpoint != References && endpoint != Links {
			return nil, fmt.Errorf("provider fields for unknown entry type %s", endpoint)
		}
	}

	b := NewCatalogueBuilder(providerPrefix)
	builtin := []struct {
		name, description string
		fields            []FieldDef
	}{
		{Structures, "a structure", structureFields()},
		{References, "a bibliographic reference", referenceFields()},
		{Links, "a link to another OPTIMADE implementation", linkFields()},
	}
	for _, e := range builtin {
		eb := b.EntryType(e.name).Description(e.description).Fields(e.fields...)
		for _, def := range providerFields[e.name] {
			eb.ProviderField(def)
		}
	}
	return b.Build()
}
