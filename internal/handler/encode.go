package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/delivery"
	"github.com/xenking/stand-kart/internal/domain/fulfillment"
	"github.com/xenking/stand-kart/internal/domain/order"
	"github.com/xenking/stand-kart/internal/domain/product"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// Money is rendered as a string with two decimals to keep it exact.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	if t.IsZero() {
		e.Null()
		return
	}
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeAccount(e *jx.Encoder, a *account.Account) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(a.ID)
	e.FieldStart("display_name")
	e.Str(a.DisplayName)
	e.FieldStart("role")
	e.Str(string(a.Role))
	e.ObjEnd()
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("category")
		e.Str(string(p.Category))
		e.FieldStart("price")
		encodeMoney(e, p.Price)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeDestination(e *jx.Encoder, d order.Destination) {
	if d == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(d.Selector()))
	if del, ok := d.(order.Delivery); ok {
		e.FieldStart("side")
		e.Str(del.Side)
		e.FieldStart("sector")
		e.Int(del.Sector)
		e.FieldStart("row")
		e.Str(del.Row)
		e.FieldStart("seat")
		e.Str(del.Seat)
	}
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("account_id")
	e.Int64(o.AccountID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("destination")
	encodeDestination(e, o.Destination)

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price_at_selection")
		encodeMoney(e, it.PriceAtSelection)
		e.FieldStart("subtotal")
		encodeMoney(e, it.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("item_count")
	e.Int(o.ItemCount())
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	if o.ClaimedBy != 0 {
		e.FieldStart("claimed_by")
		e.Int64(o.ClaimedBy)
	}
	e.FieldStart("created_at")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("placed_at")
	encodeTime(e, o.PlacedAt)
	e.ObjEnd()
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

func encodeBoard(e *jx.Encoder, scope order.Selector, b *fulfillment.Board) {
	e.ObjStart()
	e.FieldStart("scope")
	e.Str(string(scope))
	e.FieldStart("new")
	encodeOrders(e, b.New)
	e.FieldStart("preparing")
	encodeOrders(e, b.Preparing)
	e.FieldStart("ready")
	encodeOrders(e, b.Ready)
	e.ObjEnd()
}

func encodeSession(e *jx.Encoder, s *delivery.Session) {
	e.ObjStart()
	e.FieldStart("order_id")
	e.Str(s.OrderID)
	e.FieldStart("step")
	e.Str(string(s.Step))
	e.FieldStart("side")
	e.Str(s.Side)
	e.FieldStart("sector")
	e.Int(s.Sector)
	e.FieldStart("row")
	e.Str(s.Row)
	e.FieldStart("seat")
	e.Str(s.Seat)
	e.ObjEnd()
}
