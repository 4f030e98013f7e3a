package model

import (
	"time"
)

// NorthBreeze is the Northwind sample domain served to Breeze clients.
// Relationships follow GORM naming conventions so foreign keys are discovered without tags.

// Location is an address value embedded in customers, employees, suppliers and orders
type Location struct {
	Address    *string `gorm:"size:60" json:"address"`
	City       *string `gorm:"size:15" json:"city"`
	Region     *string `gorm:"size:15" json:"region"`
	PostalCode *string `gorm:"size:10" json:"postalCode"`
	Country    *string `gorm:"size:15" json:"country"`
}

type Customer struct {
	CustomerID   string   `gorm:"primaryKey;size:5" json:"customerID"`
	CompanyName  string   `gorm:"size:40;not null" json:"companyName"`
	ContactName  *string  `gorm:"size:30" json:"contactName"`
	ContactTitle *string  `gorm:"size:30" json:"contactTitle"`
	Location     Location `gorm:"embedded" json:"location"`
	Phone        *string  `gorm:"size:24" json:"phone"`
	Fax          *string  `gorm:"size:24" json:"fax"`
	RowVersion   int32    `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Orders       []Order  `json:"orders"`
}

type Employee struct {
	EmployeeID          int32               `gorm:"primaryKey" json:"employeeID"`
	LastName            string              `gorm:"size:20;not null" json:"lastName"`
	FirstName           string              `gorm:"size:10;not null" json:"firstName"`
	Title               *string             `gorm:"size:30" json:"title"`
	TitleOfCourtesy     *string             `gorm:"size:25" json:"titleOfCourtesy"`
	BirthDate           *time.Time          `json:"birthDate"`
	HireDate            *time.Time          `json:"hireDate"`
	Location            Location            `gorm:"embedded" json:"location"`
	HomePhone           *string             `gorm:"size:24" json:"homePhone"`
	Extension           *string             `gorm:"size:4" json:"extension"`
	Photo               []byte              `gorm:"type:longblob" json:"photo"`
	Notes               *string             `gorm:"type:text" json:"notes"`
	PhotoPath           *string             `gorm:"size:255" json:"photoPath"`
	ReportsToEmployeeID *int32              `json:"reportsToEmployeeID"`
	FullName            string              `gorm:"-" json:"fullName"`
	RowVersion          int32               `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Manager             *Employee           `gorm:"foreignKey:ReportsToEmployeeID" json:"manager"`
	DirectReports       []Employee          `gorm:"foreignKey:ReportsToEmployeeID" json:"directReports"`
	Orders              []Order             `json:"orders"`
	EmployeeTerritories []EmployeeTerritory `json:"employeeTerritories"`
}

type Order struct {
	OrderID            int32               `gorm:"primaryKey" json:"orderID"`
	CustomerID         *string             `gorm:"size:5" json:"customerID"`
	EmployeeID         *int32              `json:"employeeID"`
	OrderDate          *time.Time          `json:"orderDate"`
	RequiredDate       *time.Time          `json:"requiredDate"`
	ShippedDate        *time.Time          `json:"shippedDate"`
	Freight            *float64            `gorm:"type:decimal(19,4)" json:"freight"`
	ShipName           *string             `gorm:"size:40" json:"shipName"`
	ShipTo             Location            `gorm:"embedded;embeddedPrefix:ship_" json:"shipTo"`
	ShipperID          *int32              `json:"shipperID"`
	RowVersion         int32               `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Customer           *Customer           `json:"customer"`
	Employee           *Employee           `json:"employee"`
	Shipper            *Shipper            `json:"shipper"`
	OrderDetails       []OrderDetail       `json:"orderDetails"`
	InternationalOrder *InternationalOrder `json:"internationalOrder"`
}

// InternationalOrder extends an order one-to-one; its key is the order's key
type InternationalOrder struct {
	OrderID            int32   `gorm:"primaryKey;autoIncrement:false" json:"orderID"`
	CustomsDescription string  `gorm:"size:100;not null" json:"customsDescription"`
	ExciseTax          float64 `gorm:"type:decimal(19,4);default:0" json:"exciseTax"`
	RowVersion         int32   `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Order              *Order  `json:"order"`
}

type OrderDetail struct {
	OrderID    int32    `gorm:"primaryKey;autoIncrement:false" json:"orderID"`
	ProductID  int32    `gorm:"primaryKey;autoIncrement:false" json:"productID"`
	UnitPrice  float64  `gorm:"type:decimal(19,4)" json:"unitPrice"`
	Quantity   int16    `json:"quantity"`
	Discount   float32  `json:"discount"`
	RowVersion int32    `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Order      *Order   `json:"order"`
	Product    *Product `json:"product"`
}

type Product struct {
	ProductID        int32      `gorm:"primaryKey" json:"productID"`
	ProductName      string     `gorm:"size:40;not null" json:"productName"`
	SupplierID       *int32     `json:"supplierID"`
	CategoryID       *int32     `json:"categoryID"`
	QuantityPerUnit  *string    `gorm:"size:20" json:"quantityPerUnit"`
	UnitPrice        *float64   `gorm:"type:decimal(19,4)" json:"unitPrice"`
	UnitsInStock     *int16     `json:"unitsInStock"`
	UnitsOnOrder     *int16     `json:"unitsOnOrder"`
	ReorderLevel     *int16     `json:"reorderLevel"`
	Discontinued     bool       `gorm:"default:false" json:"discontinued"`
	DiscontinuedDate *time.Time `json:"discontinuedDate"`
	RowVersion       int32      `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Category         *Category  `json:"category"`
	Supplier         *Supplier  `json:"supplier"`
}

type Category struct {
	CategoryID   int32     `gorm:"primaryKey" json:"categoryID"`
	CategoryName string    `gorm:"size:15;not null" json:"categoryName"`
	Description  *string   `gorm:"type:text" json:"description"`
	Picture      []byte    `gorm:"type:longblob" json:"picture"`
	RowVersion   int32     `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Products     []Product `json:"products"`
}

type Supplier struct {
	SupplierID   int32     `gorm:"primaryKey" json:"supplierID"`
	CompanyName  string    `gorm:"size:40;not null" json:"companyName"`
	ContactName  *string   `gorm:"size:30" json:"contactName"`
	ContactTitle *string   `gorm:"size:30" json:"contactTitle"`
	Location     Location  `gorm:"embedded" json:"location"`
	Phone        *string   `gorm:"size:24" json:"phone"`
	Fax          *string   `gorm:"size:24" json:"fax"`
	HomePage     *string   `gorm:"type:text" json:"homePage"`
	RowVersion   int32     `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Products     []Product `json:"products"`
}

type Region struct {
	RegionID          int32       `gorm:"primaryKey;autoIncrement:false" json:"regionID"`
	RegionDescription string      `gorm:"size:50;not null" json:"regionDescription"`
	RowVersion        int32       `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Territories       []Territory `json:"territories"`
}

type Territory struct {
	TerritoryID          int32               `gorm:"primaryKey;autoIncrement:false" json:"territoryID"`
	TerritoryDescription string              `gorm:"size:50;not null" json:"territoryDescription"`
	RegionID             int32               `gorm:"not null" json:"regionID"`
	RowVersion           int32               `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Region               *Region             `json:"region"`
	EmployeeTerritories  []EmployeeTerritory `json:"employeeTerritories"`
}

// EmployeeTerritory links employees and territories
type EmployeeTerritory struct {
	ID          int32      `gorm:"primaryKey" json:"id"`
	EmployeeID  int32      `gorm:"not null" json:"employeeID"`
	TerritoryID int32      `gorm:"not null" json:"territoryID"`
	RowVersion  int32      `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
	Employee    *Employee  `json:"employee"`
	Territory   *Territory `json:"territory"`
}

type Shipper struct {
	ShipperID   int32   `gorm:"primaryKey" json:"shipperID"`
	CompanyName string  `gorm:"size:40;not null" json:"companyName"`
	Phone       *string `gorm:"size:24" json:"phone"`
	RowVersion  int32   `gorm:"default:0" breeze:"concurrency" json:"rowVersion"`
}

// NorthBreeze returns the sample models in the order they are described
func NorthBreeze() []interface{} {
	return []interface{}{
		&Customer{},
		&Order{},
		&OrderDetail{},
		&InternationalOrder{},
		&Product{},
		&Category{},
		&Supplier{},
		&Employee{},
		&EmployeeTerritory{},
		&Territory{},
		&Region{},
		&Shipper{},
	}
}

// ModelSets returns the compiled-in model sets by the name services refer to them in configuration
func ModelSets() map[string][]interface{} {
	return map[string][]interface{}{
		"northbreeze": NorthBreeze(),
	}
}
