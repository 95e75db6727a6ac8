package model

// Attribute is one trait entry in a token descriptor.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Descriptor is the JSON metadata document describing a token. It is
// treated as immutable once fetched.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}
