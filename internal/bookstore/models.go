// Package bookstore declares the bookstore schema: authors, publishers,
// books, stores (with a department-store multi-table-inheritance child),
// companies and employees. The tables are metadata for internal/query;
// DDL and fixture data live alongside.
package bookstore

import (
	"shelfql/internal/query"
	"shelfql/internal/schema"
)

var (
	Authors = &schema.Table{
		Name: "authors",
		PK:   "id",
		Fields: []schema.Field{
			{Name: "name", Kind: schema.Text},
			{Name: "age", Kind: schema.Int},
		},
	}

	Publishers = &schema.Table{
		Name: "publishers",
		PK:   "id",
		Fields: []schema.Field{
			{Name: "name", Kind: schema.Text},
			{Name: "num_awards", Kind: schema.Int},
		},
	}

	Books = &schema.Table{
		Name: "books",
		PK:   "id",
		Fields: []schema.Field{
			{Name: "isbn", Kind: schema.Text},
			{Name: "title", Kind: schema.Text},
			{Name: "pages", Kind: schema.Int},
			{Name: "rating", Kind: schema.Float},
			{Name: "price", Kind: schema.Decimal},
			{Name: "pubdate", Kind: schema.Date},
			{Name: "contact_id", Kind: schema.Int},
			{Name: "publisher_id", Kind: schema.Int},
		},
	}

	Stores = &schema.Table{
		Name: "stores",
		PK:   "id",
		Fields: []schema.Field{
			{Name: "name", Kind: schema.Text},
			{Name: "original_opening", Kind: schema.Date},
			{Name: "friday_night_closing", Kind: schema.Time},
		},
	}

	DepartmentStores = &schema.Table{
		Name:       "department_stores",
		PK:         "store_ptr_id",
		ParentLink: "store_ptr_id",
		Fields: []schema.Field{
			{Name: "chain", Kind: schema.Text},
		},
	}

	Companies = &schema.Table{
		Name: "companies",
		PK:   "id",
		Fields: []schema.Field{
			{Name: "name", Kind: schema.Text},
			{Name: "motto", Kind: schema.Text, Nullable: true},
			{Name: "ticker_name", Kind: schema.Text, Nullable: true},
			{Name: "description", Kind: schema.Text, Nullable: true},
		},
	}

	Employees = &schema.Table{
		Name: "employees",
		PK:   "id",
		Fields: []schema.Field{
			{Name: "first_name", Kind: schema.Text},
			{Name: "manager", Kind: schema.Bool},
			{Name: "last_name", Kind: schema.Text},
			{Name: "age", Kind: schema.Int},
			{Name: "salary", Kind: schema.Decimal},
			{Name: "store_id", Kind: schema.Int},
		},
	}
)

// Relations are attached after declaration because books and stores
// reference each other.
func init() {
	Authors.Rels = []schema.Rel{
		{Name: "friends", Kind: schema.ManyToMany, Target: Authors,
			Through: "author_friends", NearColumn: "from_author_id", FarColumn: "to_author_id"},
	}

	Books.Rels = []schema.Rel{
		{Name: "publisher", Kind: schema.ForeignKey, Target: Publishers, Column: "publisher_id"},
		{Name: "contact", Kind: schema.ForeignKey, Target: Authors, Column: "contact_id"},
		{Name: "authors", Kind: schema.ManyToMany, Target: Authors,
			Through: "book_authors", NearColumn: "book_id", FarColumn: "author_id"},
		{Name: "store", Kind: schema.ManyToMany, Target: Stores,
			Through: "store_books", NearColumn: "book_id", FarColumn: "store_id"},
	}

	Stores.Rels = []schema.Rel{
		{Name: "books", Kind: schema.ManyToMany, Target: Books,
			Through: "store_books", NearColumn: "store_id", FarColumn: "book_id"},
	}

	DepartmentStores.Parent = Stores

	Employees.Rels = []schema.Rel{
		{Name: "store", Kind: schema.ForeignKey, Target: Stores, Column: "store_id"},
	}
}

// Tables maps fixture model labels to their schema tables.
func Tables() map[string]*schema.Table {
	return map[string]*schema.Table{
		"bookstore.author":          Authors,
		"bookstore.publisher":       Publishers,
		"bookstore.book":            Books,
		"bookstore.store":           Stores,
		"bookstore.departmentstore": DepartmentStores,
		"bookstore.company":         Companies,
		"bookstore.employee":        Employees,
	}
}

// BookSet starts a query over books.
func BookSet(sess *query.Session) *query.Set { return query.NewSet(sess, Books) }

// AuthorSet starts a query over authors.
func AuthorSet(sess *query.Session) *query.Set { return query.NewSet(sess, Authors) }

// StoreSet starts a query over stores.
func StoreSet(sess *query.Session) *query.Set { return query.NewSet(sess, Stores) }

// DepartmentStoreSet starts a query over department stores.
func DepartmentStoreSet(sess *query.Session) *query.Set {
	return query.NewSet(sess, DepartmentStores)
}

// CompanySet starts a query over companies.
func CompanySet(sess *query.Session) *query.Set { return query.NewSet(sess, Companies) }

// EmployeeSet starts a query over employees.
func EmployeeSet(sess *query.Session) *query.Set { return query.NewSet(sess, Employees) }
