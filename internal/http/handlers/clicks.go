package handlers

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
)

// TrackClick records a contact-button click and answers with the
// WhatsApp URL the frontend should redirect to.
func TrackClick(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		listingID, ok := pathID(ctx)
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid listing id")
			return
		}
		clickType, _ := ctx.UserValue("type").(string)
		if clickType != "whatsapp" && clickType != "offer" {
			errResponse(ctx, fasthttp.StatusBadRequest, "unknown click type")
			return
		}

		var listing dbpkg.Listing
		if err := gdb.Where("id = ? AND is_active = ?", listingID, true).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "listing not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		signature := string(ctx.Request.Header.UserAgent())
		if len(signature) > 500 {
			signature = signature[:500]
		}

		details := datatypes.JSONMap{}
		var message string
		switch clickType {
		case "offer":
			raw := string(ctx.QueryArgs().Peek("offer"))
			amount := parseOfferAmount(raw)
			details["offer_amount"] = amount
			message = "Oferta por " + listing.Title + ": $" + strconv.FormatInt(amount, 10)
		default:
			message = "Consulta sobre: " + listing.Title
		}

		click := dbpkg.Click{
			ListingID:       listingID,
			ClickType:       clickType,
			VisitorAddress:  clientAddr(ctx),
			ClientSignature: signature,
			Details:         details,
		}
		if err := gdb.Create(&click).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to record click")
			return
		}
		clicksTotal.WithLabelValues(clickType).Inc()

		number := strings.ReplaceAll(listing.WhatsappNumber, "+", "")
		whatsappURL := "https://wa.me/" + number + "?text=" + url.QueryEscape(message)
		jsonResponse(ctx, map[string]any{"redirect": whatsappURL})
	}
}

// parseOfferAmount strips thousands separators from a user-typed amount.
// Anything unparsable counts as zero.
func parseOfferAmount(raw string) int64 {
	cleaned := strings.NewReplacer(".", "", ",", "").Replace(raw)
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
