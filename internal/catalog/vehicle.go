package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/shipgrid/backend-import/internal/contact"
	"github.com/shipgrid/backend-import/internal/pricing"
)

// Photo is one listing image.
type Photo struct {
	PhotoID  string `json:"photoId"`
	CarID    string `json:"carId"`
	PhotoURL string `json:"photoUrl"`
}

// Vehicle mirrors the upstream catalog record. Prices accept JSON numbers or
// numeric strings.
type Vehicle struct {
	CarID          string          `json:"carId"`
	Make           string          `json:"make"`
	Model          string          `json:"model"`
	Trim           string          `json:"trim"`
	Year           int             `json:"year"`
	Mileage        int             `json:"mileage"`
	Price          decimal.Decimal `json:"price"`
	PriceKRW       decimal.Decimal `json:"priceKrw"`
	PriceCAD       decimal.Decimal `json:"priceCad"`
	PriceUSD       decimal.Decimal `json:"priceUsd"`
	FuelType       string          `json:"fuelType"`
	NewCarPriceURL string          `json:"newCarPriceUrl"`
	OptionsURL     string          `json:"optionsUrl"`
	Location       string          `json:"location"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
	CarPhotos      []Photo         `json:"carPhotos"`
	OriginalURL    string          `json:"originalUrl"`
}

// BasePrice is the CAD price used for pricing: priceCad, or price when priceCad is unset.
func (v Vehicle) BasePrice() pricing.Money {
	if v.PriceCAD.IsPositive() {
		return v.PriceCAD
	}
	return v.Price
}

// Priced reports whether the vehicle carries a usable base price.
func (v Vehicle) Priced() bool {
	return v.BasePrice().IsPositive()
}

// Subject identifies the vehicle for contact links and deposit line items.
func (v Vehicle) Subject() contact.Subject {
	return contact.Subject{StockID: v.CarID, Year: v.Year, Make: v.Make, Model: v.Model, Trim: v.Trim}
}
