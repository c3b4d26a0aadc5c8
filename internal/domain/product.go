package domain

import "github.com/shopspring/decimal"

// Category — категория товара в каталоге.
type Category string

const (
	CategoryHeadphones Category = "headphones"
	CategorySpeakers   Category = "speakers"
	CategoryEarphones  Category = "earphones"
)

// Valid проверяет, что категория известна каталогу.
func (c Category) Valid() bool {
	switch c {
	case CategoryHeadphones, CategorySpeakers, CategoryEarphones:
		return true
	default:
		return false
	}
}

// ImageSet — набор адаптивных изображений.
type ImageSet struct {
	Mobile  string `json:"mobile"`
	Tablet  string `json:"tablet"`
	Desktop string `json:"desktop"`
}

// IncludedItem — элемент комплектации.
type IncludedItem struct {
	Quantity int    `json:"quantity"`
	Item     string `json:"item"`
}

// Gallery — три изображения на странице товара.
type Gallery struct {
	First  ImageSet `json:"first"`
	Second ImageSet `json:"second"`
	Third  ImageSet `json:"third"`
}

// RelatedProduct — ссылка на похожий товар.
type RelatedProduct struct {
	Slug  string   `json:"slug"`
	Name  string   `json:"name"`
	Image ImageSet `json:"image"`
}

// Product — запись каталога.
type Product struct {
	ID            string           `json:"id"`
	Slug          string           `json:"slug"`
	Name          string           `json:"name"`
	Category      Category         `json:"category"`
	CategoryImage ImageSet         `json:"categoryImage"`
	New           bool             `json:"new"`
	Price         decimal.Decimal  `json:"price"`
	Description   string           `json:"description"`
	Features      string           `json:"features"`
	Includes      []IncludedItem   `json:"includes"`
	Gallery       Gallery          `json:"gallery"`
	Others        []RelatedProduct `json:"others"`
}

// ImageRef возвращает изображение для позиции корзины.
func (p Product) ImageRef() string {
	switch {
	case p.CategoryImage.Desktop != "":
		return p.CategoryImage.Desktop
	case p.Gallery.First.Desktop != "":
		return p.Gallery.First.Desktop
	default:
		return p.CategoryImage.Mobile
	}
}

// LineItem формирует позицию корзины для товара.
func (p Product) LineItem(quantity int) LineItem {
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		ImageRef:  p.ImageRef(),
	}
}

// Validate проверяет обязательные поля товара.
func (p Product) Validate() error {
	verr := &ValidationError{}
	if p.Slug == "" {
		verr.Add("slug", "slug is required")
	}
	if p.Name == "" {
		verr.Add("name", "name is required")
	}
	if !p.Category.Valid() {
		verr.Add("category", ErrCategoryInvalid.Error())
	}
	if p.Price.IsNegative() {
		verr.Add("price", ErrUnitPriceNegative.Error())
	}
	return verr.OrErr()
}
