package mockbackend

import (
	"fmt"

	"github.com/jogardn/flashfood-datagen/pkg/models"
)

// reference is a foreign key: field holds an id (or a list of ids) of a
// record in target. When nested is set, field is a list of objects and
// nested names the id field inside each.
type reference struct {
	field  string
	nested string
	target string
}

var references = map[string][]reference{
	models.CollectionAddressBooks: {
		{field: "user_id", target: models.CollectionUsers},
		{field: "customer_id", target: models.CollectionCustomers},
		{field: "restaurant_id", target: models.CollectionRestaurants},
	},
	models.CollectionCustomers: {
		{field: "user_id", target: models.CollectionUsers},
		{field: "address_ids", target: models.CollectionAddressBooks},
	},
	models.CollectionDrivers: {
		{field: "user_id", target: models.CollectionUsers},
	},
	models.CollectionRestaurants: {
		{field: "owner_id", target: models.CollectionUsers},
		{field: "address_id", target: models.CollectionAddressBooks},
		{field: "food_category_ids", target: models.CollectionFoodCategories},
	},
	models.CollectionMenuItems: {
		{field: "restaurant_id", target: models.CollectionRestaurants},
		{field: "category", target: models.CollectionFoodCategories},
	},
	models.CollectionMenuItemVariants: {
		{field: "menu_id", target: models.CollectionMenuItems},
	},
	models.CollectionPromotions: {
		{field: "food_category_ids", target: models.CollectionFoodCategories},
	},
	models.CollectionOrders: {
		{field: "customer_id", target: models.CollectionCustomers},
		{field: "restaurant_id", target: models.CollectionRestaurants},
		{field: "customer_location", target: models.CollectionAddressBooks},
		{field: "restaurant_location", target: models.CollectionAddressBooks},
		{field: "promotion_applied", target: models.CollectionPromotions},
		{field: "order_items", nested: "item_id", target: models.CollectionMenuItems},
		{field: "order_items", nested: "variant_id", target: models.CollectionMenuItemVariants},
	},
	models.CollectionCustomerCares: {
		{field: "user_id", target: models.CollectionUsers},
	},
	models.CollectionCustomerInquiries: {
		{field: "customer_id", target: models.CollectionCustomers},
		{field: "order_id", target: models.CollectionOrders},
		{field: "assigned_to", target: models.CollectionCustomerCares},
	},
}

// ReferenceError reports a foreign key pointing at a missing record.
type ReferenceError struct {
	Field  string
	Target string
	ID     string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s references missing %s record %q", e.Field, e.Target, e.ID)
}

// checkReferences verifies every non-empty foreign key of doc.
func (s *Store) checkReferences(collection string, doc map[string]interface{}) error {
	for _, ref := range references[collection] {
		for _, id := range referencedIDs(doc, ref) {
			ok, err := s.Exists(ref.target, id)
			if err != nil {
				return err
			}
			if !ok {
				field := ref.field
				if ref.nested != "" {
					field += "." + ref.nested
				}
				return &ReferenceError{Field: field, Target: ref.target, ID: id}
			}
		}
	}
	return nil
}

func referencedIDs(doc map[string]interface{}, ref reference) []string {
	v, ok := doc[ref.field]
	if !ok {
		return nil
	}
	if ref.nested == "" {
		return ids(v)
	}

	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, el := range list {
		if obj, ok := el.(map[string]interface{}); ok {
			out = append(out, ids(obj[ref.nested])...)
		}
	}
	return out
}

func ids(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []interface{}:
		var out []string
		for _, el := range t {
			if s, ok := el.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
