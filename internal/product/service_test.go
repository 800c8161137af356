package product_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/krwhynot/pantry-crm/internal/product"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProductService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Product Service Suite")
}

// MockRepository implements product.RepositoryAPI for testing
type MockRepository struct {
	products   map[int64]*product.Product
	categories map[int64]*product.Category
	tiers      map[int64][]*product.PriceTier
	inventory  map[int64]*product.Inventory
	nextID     int64
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		products:   make(map[int64]*product.Product),
		categories: make(map[int64]*product.Category),
		tiers:      make(map[int64][]*product.PriceTier),
		inventory:  make(map[int64]*product.Inventory),
		nextID:     1,
	}
}

func (m *MockRepository) SetShouldFail(fail bool, err error) {
	m.shouldFail = fail
	m.failError = err
}

func (m *MockRepository) AddCategory(c *product.Category) {
	if c.ID == 0 {
		c.ID = m.nextID
		m.nextID++
	}
	m.categories[c.ID] = c
}

func (m *MockRepository) Create(p *product.Product) error {
	if m.shouldFail {
		return m.failError
	}
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return nil
}

func (m *MockRepository) GetByID(id int64) (*product.Product, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	p, exists := m.products[id]
	if !exists {
		return nil, product.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *MockRepository) GetBySKU(sku string) (*product.Product, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	for _, p := range m.products {
		if p.SKU == sku {
			copied := *p
			return &copied, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *MockRepository) List(filter product.ListFilter) ([]*product.Product, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*product.Product
	for _, p := range m.products {
		result = append(result, p)
	}
	return result, nil
}

func (m *MockRepository) Update(p *product.Product) error {
	if m.shouldFail {
		return m.failError
	}
	m.products[p.ID] = p
	return nil
}

func (m *MockRepository) SoftDelete(id int64, actor int64) error {
	if m.shouldFail {
		return m.failError
	}
	p, exists := m.products[id]
	if !exists {
		return product.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (m *MockRepository) CreateCategory(c *product.Category) error {
	if m.shouldFail {
		return m.failError
	}
	c.ID = m.nextID
	m.nextID++
	m.categories[c.ID] = c
	return nil
}

func (m *MockRepository) GetCategory(id int64) (*product.Category, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	c, exists := m.categories[id]
	if !exists {
		return nil, product.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MockRepository) ListCategories(activeOnly bool) ([]*product.Category, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*product.Category
	for _, c := range m.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (m *MockRepository) UpdateCategory(c *product.Category) error {
	if m.shouldFail {
		return m.failError
	}
	m.categories[c.ID] = c
	return nil
}

func (m *MockRepository) TiersForProduct(productID int64) ([]*product.PriceTier, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	return m.tiers[productID], nil
}

func (m *MockRepository) ReplaceTiers(productID int64, tiers []*product.PriceTier) error {
	if m.shouldFail {
		return m.failError
	}
	m.tiers[productID] = tiers
	return nil
}

func (m *MockRepository) GetInventory(productID int64) (*product.Inventory, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	inv, exists := m.inventory[productID]
	if !exists {
		return nil, product.ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *MockRepository) UpsertInventory(inv *product.Inventory) error {
	if m.shouldFail {
		return m.failError
	}
	m.inventory[inv.ProductID] = inv
	return nil
}

func (m *MockRepository) ListLowStock(limit int) ([]*product.Inventory, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*product.Inventory
	for _, inv := range m.inventory {
		if inv.QuantityOnHand <= inv.ReorderLevel {
			result = append(result, inv)
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ = Describe("Product Service", func() {
	var (
		mockRepo *MockRepository
		service  *product.Service
		category *product.Category
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = product.NewService(mockRepo, logger)

		category = &product.Category{Name: "dry_goods", IsActive: true}
		mockRepo.AddCategory(category)
	})

	createProduct := func(sku string) *product.Product {
		p, err := service.CreateProduct(product.CreateProductDTO{
			SKU:            sku,
			Name:           "San Marzano Tomatoes 28oz",
			CategoryID:     category.ID,
			UnitPriceCents: 450,
		}, 7)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("CreateProduct", func() {
		It("normalizes the SKU and defaults the currency", func() {
			p, err := service.CreateProduct(product.CreateProductDTO{
				SKU:            "  smt-28 ",
				Name:           "San Marzano Tomatoes 28oz",
				CategoryID:     category.ID,
				UnitPriceCents: 450,
			}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.SKU).To(Equal("SMT-28"))
			Expect(p.Currency).To(Equal(product.DefaultCurrency))
			Expect(p.IsActive).To(BeTrue())
		})

		It("rejects a duplicate SKU regardless of case", func() {
			createProduct("SMT-28")

			_, err := service.CreateProduct(product.CreateProductDTO{
				SKU:            "smt-28",
				Name:           "Duplicate Tomatoes",
				CategoryID:     category.ID,
				UnitPriceCents: 450,
			}, 7)
			Expect(err).To(MatchError(product.ErrDuplicateSKU))
		})

		It("rejects an unknown category", func() {
			_, err := service.CreateProduct(product.CreateProductDTO{
				SKU:            "SMT-28",
				Name:           "San Marzano Tomatoes 28oz",
				CategoryID:     999,
				UnitPriceCents: 450,
			}, 7)
			Expect(err).To(MatchError(product.ErrCategoryNotFound))
		})

		It("rejects an inactive category", func() {
			category.IsActive = false

			_, err := service.CreateProduct(product.CreateProductDTO{
				SKU:            "SMT-28",
				Name:           "San Marzano Tomatoes 28oz",
				CategoryID:     category.ID,
				UnitPriceCents: 450,
			}, 7)
			Expect(err).To(MatchError(product.ErrCategoryNotFound))
		})

		It("rejects a non-positive price", func() {
			_, err := service.CreateProduct(product.CreateProductDTO{
				SKU:        "SMT-28",
				Name:       "San Marzano Tomatoes 28oz",
				CategoryID: category.ID,
			}, 7)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("PriceFor", func() {
		var p *product.Product

		BeforeEach(func() {
			p = createProduct("SMT-28")
			_, err := service.SetPriceTiers(p.ID, product.SetPriceTiersDTO{
				Tiers: []product.PriceTierInput{
					{MinQuantity: 12, UnitPriceCents: 420},
					{MinQuantity: 48, UnitPriceCents: 390},
				},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("quotes the base price below every tier", func() {
			quote, err := service.PriceFor(p.ID, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(quote.UnitPriceCents).To(Equal(int64(450)))
			Expect(quote.TotalCents).To(Equal(int64(2250)))
		})

		It("applies the deepest tier the quantity reaches", func() {
			quote, err := service.PriceFor(p.ID, 12)
			Expect(err).NotTo(HaveOccurred())
			Expect(quote.UnitPriceCents).To(Equal(int64(420)))

			quote, err = service.PriceFor(p.ID, 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(quote.UnitPriceCents).To(Equal(int64(390)))
			Expect(quote.TotalCents).To(Equal(int64(23400)))
		})

		It("rejects a quantity below one", func() {
			_, err := service.PriceFor(p.ID, 0)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SetPriceTiers", func() {
		It("rejects duplicate quantity breaks", func() {
			p := createProduct("SMT-28")
			_, err := service.SetPriceTiers(p.ID, product.SetPriceTiersDTO{
				Tiers: []product.PriceTierInput{
					{MinQuantity: 12, UnitPriceCents: 420},
					{MinQuantity: 12, UnitPriceCents: 400},
				},
			})
			Expect(err).To(HaveOccurred())
		})

		It("replaces existing tiers wholesale", func() {
			p := createProduct("SMT-28")
			_, err := service.SetPriceTiers(p.ID, product.SetPriceTiersDTO{
				Tiers: []product.PriceTierInput{{MinQuantity: 12, UnitPriceCents: 420}},
			})
			Expect(err).NotTo(HaveOccurred())

			tiers, err := service.SetPriceTiers(p.ID, product.SetPriceTiersDTO{
				Tiers: []product.PriceTierInput{{MinQuantity: 24, UnitPriceCents: 400}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tiers).To(HaveLen(1))
			Expect(mockRepo.tiers[p.ID]).To(HaveLen(1))
			Expect(mockRepo.tiers[p.ID][0].MinQuantity).To(Equal(int64(24)))
		})
	})

	Describe("AdjustInventory", func() {
		var p *product.Product

		BeforeEach(func() {
			p = createProduct("SMT-28")
		})

		It("starts from an empty shelf", func() {
			inv, err := service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.QuantityOnHand).To(Equal(int64(100)))
		})

		It("applies negative deltas down to zero", func() {
			_, err := service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: 100})
			Expect(err).NotTo(HaveOccurred())

			inv, err := service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: -100})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.QuantityOnHand).To(BeZero())
		})

		It("rejects an adjustment past zero", func() {
			_, err := service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: 10})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: -11})
			Expect(err).To(MatchError(product.ErrNegativeStock))

			inv, err := service.GetInventory(p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.QuantityOnHand).To(Equal(int64(10)))
		})

		It("updates the reorder level alongside the delta", func() {
			reorder := int64(24)
			inv, err := service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: 20, ReorderLevel: &reorder})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.ReorderLevel).To(Equal(int64(24)))
			Expect(inv.LowStock()).To(BeTrue())
		})
	})

	Describe("ListLowStock", func() {
		It("returns records at or below their reorder level", func() {
			low := createProduct("SMT-28")
			fine := createProduct("OO-1L")

			reorder := int64(24)
			_, err := service.AdjustInventory(low.ID, product.AdjustInventoryDTO{Delta: 10, ReorderLevel: &reorder})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.AdjustInventory(fine.ID, product.AdjustInventoryDTO{Delta: 100, ReorderLevel: &reorder})
			Expect(err).NotTo(HaveOccurred())

			records, err := service.ListLowStock(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ProductID).To(Equal(low.ID))
		})
	})

	Describe("DeactivateCategory", func() {
		It("switches the category off", func() {
			c, err := service.DeactivateCategory(category.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsActive).To(BeFalse())

			active, err := service.ListCategories(true)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeEmpty())
		})
	})

	Describe("UpdateProduct", func() {
		It("keeps the SKU immutable and re-verifies a changed category", func() {
			p := createProduct("SMT-28")
			retired := &product.Category{Name: "discontinued", IsActive: false}
			mockRepo.AddCategory(retired)

			_, err := service.UpdateProduct(p.ID, product.UpdateProductDTO{CategoryID: &retired.ID}, 7)
			Expect(err).To(MatchError(product.ErrCategoryNotFound))

			name := "Renamed Tomatoes"
			updated, err := service.UpdateProduct(p.ID, product.UpdateProductDTO{Name: &name}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.SKU).To(Equal("SMT-28"))
			Expect(updated.Name).To(Equal(name))
		})
	})

	Describe("GetProduct", func() {
		It("enriches the response with category and inventory", func() {
			p := createProduct("SMT-28")
			_, err := service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: 40})
			Expect(err).NotTo(HaveOccurred())

			resp, err := service.GetProduct(p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Category).NotTo(BeNil())
			Expect(resp.Category.Name).To(Equal("dry_goods"))
			Expect(resp.Inventory).NotTo(BeNil())
			Expect(resp.Inventory.QuantityOnHand).To(Equal(int64(40)))
		})
	})

	Describe("ListProducts", func() {
		It("wraps store failures", func() {
			mockRepo.SetShouldFail(true, errors.New("database error"))
			_, err := service.ListProducts(product.ListFilter{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ReorderLevel timestamps", func() {
		It("stamps the inventory update time", func() {
			p := createProduct("SMT-28")
			before := time.Now().Add(-time.Second)

			inv, err := service.AdjustInventory(p.ID, product.AdjustInventoryDTO{Delta: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.UpdatedAt).To(BeTemporally(">", before))
		})
	})
})
