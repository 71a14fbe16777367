// Command checkout-api serves the checkout and coupon endpoints.
package main

import (
	"context"
	"log"

	"github.com/gaborage/go-checkout/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}

	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
