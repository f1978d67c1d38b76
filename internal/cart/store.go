// Package cart keeps storefront carts and wishlists per owner and notifies
// subscribers of every change.
package cart

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be positive")
	ErrItemNotFound    = errors.New("cart: item not in cart")
	ErrEmptyOwner      = errors.New("cart: owner id is empty")
)

// Item is one variant line in a cart.
type Item struct {
	VariantID int64           `json:"variant_id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Cart is an owner's cart and wishlist.
type Cart struct {
	OwnerID   string    `json:"owner_id"`
	Items     []Item    `json:"items"`
	Wishlist  []int64   `json:"wishlist"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total is the sum of quantity × unit price over all items.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Empty reports whether the cart holds no items and no wishlist entries.
func (c Cart) Empty() bool { return len(c.Items) == 0 && len(c.Wishlist) == 0 }

func (c Cart) clone() Cart {
	out := c
	out.Items = append(make([]Item, 0, len(c.Items)), c.Items...)
	out.Wishlist = append(make([]int64, 0, len(c.Wishlist)), c.Wishlist...)
	return out
}

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventItemAdded       EventKind = "item_added"
	EventQuantityUpdated EventKind = "quantity_updated"
	EventItemRemoved     EventKind = "item_removed"
	EventCleared         EventKind = "cleared"
	EventWishlistToggled EventKind = "wishlist_toggled"
)

// Event is delivered to subscribers after a mutation. Cart is a snapshot.
type Event struct {
	Kind EventKind
	Cart Cart
}

// Listener receives events synchronously on the mutating goroutine.
type Listener func(Event)

// Store holds carts by owner id. It is safe for concurrent use. Listeners run
// after the store's lock is released, so they may call back into the store.
type Store struct {
	mu        sync.Mutex
	carts     map[string]*Cart
	listeners map[int]Listener
	nextID    int
	now       func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		carts:     make(map[string]*Cart),
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// Subscribe registers fn for every subsequent mutation and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Has reports whether the store holds a cart for owner.
func (s *Store) Has(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.carts[owner]
	return ok
}

// Get returns a snapshot of owner's cart; an unknown owner gets an empty cart.
func (s *Store) Get(owner string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[owner]; ok {
		return c.clone()
	}
	return Cart{OwnerID: owner, Items: []Item{}, Wishlist: []int64{}}
}

// Restore installs c as its owner's cart without notifying subscribers. A cart
// already in memory wins; Restore reports whether c was installed.
func (s *Store) Restore(c Cart) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[c.OwnerID]; ok {
		return false
	}
	cp := c.clone()
	s.carts[c.OwnerID] = &cp
	return true
}

// AddItem adds item to the cart, merging quantities for a variant already present.
func (s *Store) AddItem(owner string, item Item) (Cart, error) {
	if item.Quantity <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	return s.mutate(owner, EventItemAdded, func(c *Cart) error {
		for i := range c.Items {
			if c.Items[i].VariantID == item.VariantID {
				c.Items[i].Quantity += item.Quantity
				c.Items[i].UnitPrice = item.UnitPrice
				return nil
			}
		}
		c.Items = append(c.Items, item)
		return nil
	})
}

// UpdateQuantity sets the quantity of a variant. Zero removes the line.
func (s *Store) UpdateQuantity(owner string, variantID int64, quantity int) (Cart, error) {
	if quantity < 0 {
		return Cart{}, ErrInvalidQuantity
	}
	kind := EventQuantityUpdated
	if quantity == 0 {
		kind = EventItemRemoved
	}
	return s.mutate(owner, kind, func(c *Cart) error {
		i := indexOf(c.Items, variantID)
		if i < 0 {
			return ErrItemNotFound
		}
		if quantity == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
		c.Items[i].Quantity = quantity
		return nil
	})
}

// RemoveItem drops a variant from the cart.
func (s *Store) RemoveItem(owner string, variantID int64) (Cart, error) {
	return s.mutate(owner, EventItemRemoved, func(c *Cart) error {
		i := indexOf(c.Items, variantID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
}

// Clear empties the cart items; the wishlist is kept.
func (s *Store) Clear(owner string) (Cart, error) {
	return s.mutate(owner, EventCleared, func(c *Cart) error {
		c.Items = []Item{}
		return nil
	})
}

// ToggleWishlist adds productID to the wishlist or removes it, and reports
// whether it is wishlisted afterwards.
func (s *Store) ToggleWishlist(owner string, productID int64) (Cart, bool, error) {
	var listed bool
	c, err := s.mutate(owner, EventWishlistToggled, func(c *Cart) error {
		for i, id := range c.Wishlist {
			if id == productID {
				c.Wishlist = append(c.Wishlist[:i], c.Wishlist[i+1:]...)
				listed = false
				return nil
			}
		}
		c.Wishlist = append(c.Wishlist, productID)
		sort.Slice(c.Wishlist, func(i, j int) bool { return c.Wishlist[i] < c.Wishlist[j] })
		listed = true
		return nil
	})
	return c, listed, err
}

// mutate applies fn to owner's cart under the lock and then notifies listeners.
// Nothing is changed or published when fn fails.
func (s *Store) mutate(owner string, kind EventKind, fn func(*Cart) error) (Cart, error) {
	if owner == "" {
		return Cart{}, ErrEmptyOwner
	}

	s.mu.Lock()
	current, ok := s.carts[owner]
	var working Cart
	if ok {
		working = current.clone()
	} else {
		working = Cart{OwnerID: owner, Items: []Item{}, Wishlist: []int64{}}
	}
	if err := fn(&working); err != nil {
		s.mu.Unlock()
		return Cart{}, err
	}
	working.UpdatedAt = s.now()
	s.carts[owner] = &working
	snapshot := working.clone()

	listeners := make([]Listener, 0, len(s.listeners))
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(Event{Kind: kind, Cart: snapshot.clone()})
	}
	return snapshot, nil
}

func indexOf(items []Item, variantID int64) int {
	for i := range items {
		if items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}
