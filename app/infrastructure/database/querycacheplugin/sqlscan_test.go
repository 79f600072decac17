package querycacheplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanTables(t *testing.T) {
	cases := map[string]struct {
		sql  string
		want []string
	}{
		"select":         {"SELECT * FROM orders WHERE id = 1", []string{"orders"}},
		"quoted":         {`SELECT * FROM "public"."orders" AS o WHERE o.id = $1`, []string{`"public"."orders"`}},
		"backticks":      {"SELECT * FROM `orders` WHERE `orders`.`user_id` = ?", []string{"`orders`"}},
		"joins":          {"SELECT * FROM orders o LEFT JOIN users u ON u.id = o.user_id INNER JOIN items ON true", []string{"orders", "users", "items"}},
		"comma list":     {"SELECT * FROM orders o, users AS u, items WHERE 1 = 1", []string{"orders", "users", "items"}},
		"subquery":       {"SELECT * FROM orders WHERE user_id IN (SELECT id FROM users WHERE name = 'x')", []string{"orders", "users"}},
		"derived table":  {"SELECT * FROM (SELECT * FROM users) AS u", []string{"users"}},
		"insert":         {"INSERT INTO orders (user_id, status) VALUES (?, ?) RETURNING id", []string{"orders"}},
		"insert select":  {"INSERT INTO archive SELECT * FROM orders", []string{"archive", "orders"}},
		"update":         {"UPDATE orders SET status = ? WHERE id = ?", []string{"orders"}},
		"update only":    {"UPDATE ONLY orders SET status = 'x'", []string{"orders"}},
		"delete using":   {"DELETE FROM orders USING users WHERE users.id = orders.user_id", []string{"orders", "users"}},
		"truncate":       {"TRUNCATE orders", []string{"orders"}},
		"truncate table": {"TRUNCATE TABLE orders, users", []string{"orders", "users"}},
		"literal":        {"SELECT 'FROM secrets' FROM orders", []string{"orders"}},
		"escaped quote":  {"SELECT 'it''s FROM x' FROM orders", []string{"orders"}},
		"line comment":   {"SELECT 1 -- FROM secrets\nFROM orders", []string{"orders"}},
		"block comment":  {"SELECT /* JOIN secrets */ * FROM orders", []string{"orders"}},
		"join using":     {"SELECT * FROM orders JOIN users USING (id)", []string{"orders", "users"}},
		"no tables":      {"SELECT 1", nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScanTables(tc.sql))
		})
	}
}
