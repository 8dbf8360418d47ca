package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

const maxBodyBytes = 16 << 10

// decodeObject reads a JSON object body field by field. Unknown fields are
// skipped.
func decodeObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := jx.Decode(body, 1024)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		return field(d, key)
	}); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body too large")
		}
		return badRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

type addItemRequest struct {
	ProductID string
	Quantity  int
}

func decodeAddItem(w http.ResponseWriter, r *http.Request) (addItemRequest, error) {
	req := addItemRequest{Quantity: 1}
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "product_id":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if req.ProductID == "" {
		return req, badRequest("product_id is required")
	}
	return req, nil
}

func decodeQuantity(w http.ResponseWriter, r *http.Request) (int, error) {
	qty, seen := 0, false
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		qty, err = d.Int()
		return err
	})
	if err != nil {
		return 0, err
	}
	if !seen {
		return 0, badRequest("quantity is required")
	}
	return qty, nil
}

type checkoutRequest struct {
	Destination string
	Side        string
	Sector      int
	Row         string
	Seat        string
}

func decodeCheckout(w http.ResponseWriter, r *http.Request) (checkoutRequest, error) {
	var req checkoutRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "destination":
			req.Destination, err = d.Str()
		case "side":
			req.Side, err = d.Str()
		case "sector":
			req.Sector, err = d.Int()
		case "row":
			req.Row, err = d.Str()
		case "seat":
			req.Seat, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeStringField(w http.ResponseWriter, r *http.Request, name string) (string, error) {
	var v string
	seen := false
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key != name {
			return d.Skip()
		}
		seen = true
		v, err = d.Str()
		return err
	})
	if err != nil {
		return "", err
	}
	if !seen {
		return "", badRequest(name + " is required")
	}
	return v, nil
}
