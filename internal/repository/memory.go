package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pos_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type memoryState struct {
	products   map[string]domain.Product
	categories map[string]domain.Category
	sales      map[string]domain.Sale
	saleItems  map[string][]domain.SaleItem
	users      map[string]domain.User

	// parent is set on transaction state. Sales and items written inside the
	// transaction live in this state's maps until commit merges them.
	parent *memoryState
}

func newMemoryState() *memoryState {
	return &memoryState{
		products:   map[string]domain.Product{},
		categories: map[string]domain.Category{},
		sales:      map[string]domain.Sale{},
		saleItems:  map[string][]domain.SaleItem{},
		users:      map[string]domain.User{},
	}
}

// begin returns transaction state over s. Only products are copied;
// categories and users are shared because transactions never write them.
func (s *memoryState) begin() *memoryState {
	products := make(map[string]domain.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	return &memoryState{
		products:   products,
		categories: s.categories,
		sales:      map[string]domain.Sale{},
		saleItems:  map[string][]domain.SaleItem{},
		users:      s.users,
		parent:     s,
	}
}

func (s *memoryState) commit() {
	p := s.parent
	p.products = s.products
	for id, sale := range s.sales {
		p.sales[id] = sale
	}
	for id, items := range s.saleItems {
		p.saleItems[id] = append(p.saleItems[id], items...)
	}
}

func (s *memoryState) sale(id string) (domain.Sale, bool) {
	if sale, ok := s.sales[id]; ok {
		return sale, true
	}
	if s.parent != nil {
		return s.parent.sale(id)
	}
	return domain.Sale{}, false
}

func (s *memoryState) itemsOf(saleID string) []domain.SaleItem {
	var items []domain.SaleItem
	if s.parent != nil {
		items = s.parent.itemsOf(saleID)
	}
	return append(append([]domain.SaleItem{}, items...), s.saleItems[saleID]...)
}

func (s *memoryState) eachSale(fn func(domain.Sale)) {
	if s.parent != nil {
		s.parent.eachSale(fn)
	}
	for _, sale := range s.sales {
		fn(sale)
	}
}

func (s *memoryState) productSold(productID string) bool {
	for _, items := range s.saleItems {
		for _, item := range items {
			if item.ProductID == productID {
				return true
			}
		}
	}
	return s.parent != nil && s.parent.productSold(productID)
}

// MemoryStore keeps everything in process memory. Transactions run on a
// private copy of the products plus an overlay of new sales, merged into the
// live state only when fn succeeds; the store mutex is held for the whole
// transaction.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	log   *logrus.Logger
}

var _ domain.TransactionManager = (*MemoryStore)(nil)

func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		state: newMemoryState(),
		log:   logger,
	}
}

func (s *MemoryStore) Products() domain.ProductRepository {
	return &memoryProductRepository{memoryAccess{store: s}}
}

func (s *MemoryStore) Categories() domain.CategoryRepository {
	return &memoryCategoryRepository{memoryAccess{store: s}}
}

func (s *MemoryStore) Sales() domain.SaleRepository {
	return &memorySaleRepository{memoryAccess{store: s}}
}

func (s *MemoryStore) Users() domain.UserRepository {
	return &memoryUserRepository{memoryAccess{store: s}}
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos domain.TxRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.begin()
	access := memoryAccess{store: s, tx: snapshot}
	err := fn(ctx, domain.TxRepositories{
		Products: &memoryProductRepository{access},
		Sales:    &memorySaleRepository{access},
	})
	if err != nil {
		s.log.Warnf("Repository: Discarding in-memory transaction due to error: %v", err)
		return err
	}
	snapshot.commit()
	return nil
}

type memoryAccess struct {
	store *MemoryStore
	tx    *memoryState
}

func (a memoryAccess) with(fn func(st *memoryState) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

// --- products ---

type memoryProductRepository struct {
	memoryAccess
}

func (r *memoryProductRepository) CreateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	err := r.with(func(st *memoryState) error {
		for _, existing := range st.products {
			if existing.SKU == product.SKU {
				return domain.ErrDuplicateSKU
			}
		}
		if product.CategoryID != "" {
			if _, ok := st.categories[product.CategoryID]; !ok {
				return domain.ErrCategoryNotFound
			}
		}
		st.products[product.ID] = *product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *memoryProductRepository) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := r.with(func(st *memoryState) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *memoryProductRepository) UpdateProduct(_ context.Context, id string, updates map[string]interface{}) (*domain.Product, error) {
	var product domain.Product
	err := r.with(func(st *memoryState) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		for key, value := range updates {
			switch key {
			case "name":
				p.Name, _ = value.(string)
			case "sku":
				sku, _ := value.(string)
				for otherID, other := range st.products {
					if otherID != id && other.SKU == sku {
						return domain.ErrDuplicateSKU
					}
				}
				p.SKU = sku
			case "price":
				p.Price, _ = value.(float64)
			case "quantity":
				p.Quantity, _ = value.(int)
			case "lowStockThreshold":
				p.LowStockThreshold, _ = value.(int)
			case "imageUrl":
				p.ImageURL, _ = value.(string)
			case "categoryId":
				catID, _ := value.(string)
				if catID != "" {
					if _, ok := st.categories[catID]; !ok {
						return domain.ErrCategoryNotFound
					}
				}
				p.CategoryID = catID
			}
		}
		if p.Quantity < 0 {
			return domain.NewValidationError("quantity", "cannot be negative")
		}
		p.UpdatedAt = time.Now().UTC()
		st.products[id] = p
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *memoryProductRepository) DeleteProduct(_ context.Context, id string) error {
	return r.with(func(st *memoryState) error {
		if _, ok := st.products[id]; !ok {
			return domain.ErrProductNotFound
		}
		if st.productSold(id) {
			return domain.ErrProductInUse
		}
		delete(st.products, id)
		return nil
	})
}

func (r *memoryProductRepository) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	limit, offset := domain.NormalizeLimit(filter.Limit, filter.Offset)
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	products := []domain.Product{}
	_ = r.with(func(st *memoryState) error {
		for _, p := range st.products {
			if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(p.Name), query) && !strings.Contains(strings.ToLower(p.SKU), query) {
				continue
			}
			products = append(products, p)
		}
		return nil
	})
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return paginate(products, limit, offset), nil
}

func (r *memoryProductRepository) ListLowStock(_ context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	_ = r.with(func(st *memoryState) error {
		for _, p := range st.products {
			if p.IsLowStock() {
				products = append(products, p)
			}
		}
		return nil
	})
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity < products[j].Quantity
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (r *memoryProductRepository) DecrementStock(_ context.Context, id string, amount int) (*domain.Product, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var product domain.Product
	err := r.with(func(st *memoryState) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		if p.Quantity < amount {
			return &domain.StockError{ProductID: p.ID, ProductName: p.Name, Requested: amount, Available: p.Quantity}
		}
		p.Quantity -= amount
		p.UpdatedAt = time.Now().UTC()
		st.products[id] = p
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// --- categories ---

type memoryCategoryRepository struct {
	memoryAccess
}

func (r *memoryCategoryRepository) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	err := r.with(func(st *memoryState) error {
		for _, existing := range st.categories {
			if existing.Name == category.Name {
				return domain.ErrCategoryExists
			}
		}
		st.categories[category.ID] = *category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *memoryCategoryRepository) GetCategoryByID(_ context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	err := r.with(func(st *memoryState) error {
		c, ok := st.categories[id]
		if !ok {
			return domain.ErrCategoryNotFound
		}
		category = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *memoryCategoryRepository) UpdateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	err := r.with(func(st *memoryState) error {
		if _, ok := st.categories[category.ID]; !ok {
			return domain.ErrCategoryNotFound
		}
		for id, existing := range st.categories {
			if id != category.ID && existing.Name == category.Name {
				return domain.ErrCategoryExists
			}
		}
		st.categories[category.ID] = *category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *memoryCategoryRepository) DeleteCategory(_ context.Context, id string) error {
	return r.with(func(st *memoryState) error {
		if _, ok := st.categories[id]; !ok {
			return domain.ErrCategoryNotFound
		}
		delete(st.categories, id)
		for pid, p := range st.products {
			if p.CategoryID == id {
				p.CategoryID = ""
				st.products[pid] = p
			}
		}
		return nil
	})
}

func (r *memoryCategoryRepository) ListCategories(_ context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	_ = r.with(func(st *memoryState) error {
		for _, c := range st.categories {
			categories = append(categories, c)
		}
		return nil
	})
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// --- sales ---

type memorySaleRepository struct {
	memoryAccess
}

func (r *memorySaleRepository) CreateSale(_ context.Context, sale *domain.Sale) error {
	return r.with(func(st *memoryState) error {
		header := *sale
		header.Items = nil
		st.sales[sale.ID] = header
		return nil
	})
}

func (r *memorySaleRepository) CreateSaleItem(_ context.Context, item *domain.SaleItem) error {
	return r.with(func(st *memoryState) error {
		if _, ok := st.sale(item.SaleID); !ok {
			return domain.ErrSaleNotFound
		}
		if _, ok := st.products[item.ProductID]; !ok {
			return domain.ErrProductNotFound
		}
		st.saleItems[item.SaleID] = append(st.saleItems[item.SaleID], *item)
		return nil
	})
}

func (r *memorySaleRepository) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.with(func(st *memoryState) error {
		s, ok := st.sale(id)
		if !ok {
			return domain.ErrSaleNotFound
		}
		s.Items = st.itemsOf(id)
		sale = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *memorySaleRepository) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	limit, offset := domain.NormalizeLimit(filter.Limit, filter.Offset)
	sales := []domain.Sale{}
	_ = r.with(func(st *memoryState) error {
		st.eachSale(func(s domain.Sale) {
			if !filter.From.IsZero() && s.CreatedAt.Before(filter.From) {
				return
			}
			if !filter.To.IsZero() && !s.CreatedAt.Before(filter.To) {
				return
			}
			s.Items = st.itemsOf(s.ID)
			sales = append(sales, s)
		})
		return nil
	})
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].CreatedAt.Equal(sales[j].CreatedAt) {
			return sales[i].CreatedAt.After(sales[j].CreatedAt)
		}
		return sales[i].ID > sales[j].ID
	})
	return paginate(sales, limit, offset), nil
}

func (r *memorySaleRepository) Summarize(_ context.Context, from, to time.Time) (*domain.SalesSummary, error) {
	summary := &domain.SalesSummary{
		From:          from,
		To:            to,
		ByPaymentMode: map[domain.PaymentMode]float64{},
	}
	_ = r.with(func(st *memoryState) error {
		st.eachSale(func(s domain.Sale) {
			if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
				return
			}
			summary.SaleCount++
			summary.Revenue += s.Total
			summary.ByPaymentMode[s.PaymentMode] += s.Total
			for _, item := range st.itemsOf(s.ID) {
				summary.ItemsSold += item.Quantity
			}
		})
		return nil
	})
	return summary, nil
}

// --- users ---

type memoryUserRepository struct {
	memoryAccess
}

func (r *memoryUserRepository) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	err := r.with(func(st *memoryState) error {
		for _, existing := range st.users {
			if existing.Username == user.Username {
				return domain.ErrUserExists
			}
		}
		st.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *memoryUserRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.with(func(st *memoryState) error {
		for _, u := range st.users {
			if u.Username == username {
				user = u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *memoryUserRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.with(func(st *memoryState) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *memoryUserRepository) ListUsers(_ context.Context) ([]domain.User, error) {
	users := []domain.User{}
	_ = r.with(func(st *memoryState) error {
		for _, u := range st.users {
			users = append(users, u)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *memoryUserRepository) UpdateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	var updated domain.User
	err := r.with(func(st *memoryState) error {
		u, ok := st.users[user.ID]
		if !ok {
			return domain.ErrUserNotFound
		}
		u.PasswordHash = user.PasswordHash
		u.Role = user.Role
		u.UpdatedAt = user.UpdatedAt
		st.users[user.ID] = u
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *memoryUserRepository) DeleteUser(_ context.Context, id string) error {
	return r.with(func(st *memoryState) error {
		if _, ok := st.users[id]; !ok {
			return domain.ErrUserNotFound
		}
		delete(st.users, id)
		return nil
	})
}
