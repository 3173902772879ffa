package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FeedShop identifies the shop a feed belongs to. Feeds carry either a
// bare shop name or a mapping with name and feed url.
type FeedShop struct {
	Name string
	URL  *string
}

func (s *FeedShop) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Name = node.Value
		return nil
	case yaml.MappingNode:
		var raw struct {
			Name string  `yaml:"name"`
			URL  *string `yaml:"url"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		s.Name = raw.Name
		s.URL = raw.URL
		return nil
	default:
		return fmt.Errorf("shop must be a name or a mapping")
	}
}

// FeedPrice accepts quoted and bare numeric scalars.
type FeedPrice struct {
	decimal.Decimal
}

func (p *FeedPrice) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("price must be a number")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("invalid price %q", node.Value)
	}
	p.Decimal = value
	return nil
}

// FeedCategory is a category entry keyed by the feed-local id that
// goods reference in their category field.
type FeedCategory struct {
	ID   uint   `yaml:"id"`
	Name string `yaml:"name"`
}

// FeedGood is one offer row. The top-level id becomes the offer's
// external id within the shop.
type FeedGood struct {
	ID         uint              `yaml:"id"`
	Category   uint              `yaml:"category"`
	Name       string            `yaml:"name"`
	Model      string            `yaml:"model"`
	Price      FeedPrice         `yaml:"price"`
	PriceRRC   FeedPrice         `yaml:"price_rrc"`
	Quantity   int               `yaml:"quantity"`
	Parameters map[string]string `yaml:"parameters"`
}

// FeedDocument is the partner price-list document.
type FeedDocument struct {
	Shop       FeedShop       `yaml:"shop"`
	Categories []FeedCategory `yaml:"categories"`
	Goods      []FeedGood     `yaml:"goods"`
}

// ParseFeed decodes and validates a feed document.
func ParseFeed(raw []byte) (*FeedDocument, error) {
	var doc FeedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *FeedDocument) validate() error {
	if strings.TrimSpace(d.Shop.Name) == "" {
		return fmt.Errorf("feed is missing the shop name")
	}
	for i, cat := range d.Categories {
		if cat.ID == 0 {
			return fmt.Errorf("category #%d has no id", i+1)
		}
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("category %d has no name", cat.ID)
		}
	}
	for i, good := range d.Goods {
		if good.ID == 0 {
			return fmt.Errorf("good #%d has no id", i+1)
		}
		if strings.TrimSpace(good.Name) == "" {
			return fmt.Errorf("good %d has no name", good.ID)
		}
		if good.Category == 0 {
			return fmt.Errorf("good %d has no category", good.ID)
		}
		if good.Quantity < 0 {
			return fmt.Errorf("good %d has negative quantity", good.ID)
		}
		if good.Price.IsNegative() || good.PriceRRC.IsNegative() {
			return fmt.Errorf("good %d has a negative price", good.ID)
		}
	}
	return nil
}

// Summary aggregates what an import created and removed.
type Summary struct {
	ShopsCreated             int `json:"shops_created"`
	CategoriesCreated        int `json:"categories_created"`
	ProductsCreated          int `json:"products_created"`
	ProductInfosCreated      int `json:"product_infos_created"`
	ParametersCreated        int `json:"parameters_created"`
	ProductParametersCreated int `json:"product_parameters_created"`
	ProductInfosRemoved      int `json:"product_infos_removed,omitempty"`
}
