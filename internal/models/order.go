package models

import "time"

// OrderLine is one row of the source dataset: a single item (or payment
// split) within an order. The same order ID can appear on several lines, so
// order-level metrics must count distinct order IDs, never rows.
type OrderLine struct {
	OrderID             string
	CustomerID          string
	Category            string
	Price               float64
	PaymentType         string
	PaymentValue        float64
	ReviewScore         *float64
	PurchasedAt         time.Time
	ApprovedAt          *time.Time
	CarrierHandoffAt    *time.Time
	DeliveredAt         *time.Time
	EstimatedDeliveryAt *time.Time
	CustomerState       string
}

// MonthlyBucket is one calendar month of the sales trend. AvgOrderValue is
// nil when the month has no orders.
type MonthlyBucket struct {
	Month         time.Time `json:"month"`
	OrderCount    int       `json:"order_count"`
	Revenue       float64   `json:"revenue"`
	AvgOrderValue *float64  `json:"avg_order_value"`
}

type CategoryStats struct {
	Category   string  `json:"category"`
	OrderCount int     `json:"order_count"`
	ItemCount  int     `json:"item_count"`
	MinPrice   float64 `json:"min_price"`
	AvgPrice   float64 `json:"avg_price"`
	MaxPrice   float64 `json:"max_price"`
	TotalSales float64 `json:"total_sales"`
}

type CategoryRank struct {
	Category   string  `json:"category"`
	TotalSales float64 `json:"total_sales"`
}

type RFMRecord struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`
	Frequency  int     `json:"frequency"`
	Monetary   float64 `json:"monetary"`
}

// DeliveryRecord covers one delivered order. Difference >= 0 means the order
// arrived on or before the estimate.
type DeliveryRecord struct {
	OrderID       string `json:"order_id"`
	ActualDays    int    `json:"actual_delivery_time"`
	EstimatedDays int    `json:"estimated_delivery_time"`
	Difference    int    `json:"delivery_difference"`
}

type PaymentMethodStats struct {
	PaymentType string  `json:"payment_type"`
	OrderCount  int     `json:"order_count"`
	TotalValue  float64 `json:"total_value"`
}

type ReviewBucket struct {
	Score      int     `json:"score"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type StateCustomers struct {
	State         string `json:"state"`
	CustomerCount int    `json:"customer_count"`
}

type OverviewMetrics struct {
	TotalOrders    int      `json:"total_orders"`
	TotalRevenue   float64  `json:"total_revenue"`
	AvgOrderValue  *float64 `json:"avg_order_value"`
	OnTimeRate     float64  `json:"on_time_rate"`
	AvgReviewScore float64  `json:"avg_review_score"`
}
