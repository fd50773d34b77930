package validators

import "go.mongodb.org/mongo-driver/bson"

var blockingAndTerminal = []string{
	"pending",
	"approved",
	"active",
	"completed",
	"cancelled",
	"rejected",
}

func reservationProperties(extra bson.M) bson.M {
	props := bson.M{
		"_id": bson.M{
			"bsonType":  "string",
			"minLength": 24,
			"maxLength": 24,
		},

		"kind": bson.M{
			"bsonType": "string",
			"enum":     []string{"regular", "event"},
		},

		"spot_ids": bson.M{
			"bsonType": "array",
			"minItems": 1,
			"items": bson.M{
				"bsonType": "string",
			},
		},

		"requester": bson.M{
			"bsonType":  "string",
			"minLength": 1,
			"maxLength": 100,
		},

		"start_time": bson.M{
			"bsonType": "date",
		},

		"end_time": bson.M{
			"bsonType": "date",
		},

		"total_price_cents": bson.M{
			"bsonType": []string{"int", "long"},
			"minimum":  0,
		},

		"status": bson.M{
			"bsonType": "string",
			"enum":     blockingAndTerminal,
		},

		"payment_status": bson.M{
			"bsonType": "string",
			"enum":     []string{"unpaid", "paid"},
		},

		"created_at": bson.M{
			"bsonType": "date",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var reservationRequired = []string{
	"kind",
	"spot_ids",
	"requester",
	"start_time",
	"end_time",
	"total_price_cents",
	"status",
	"payment_status",
	"created_at",
}

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             append(append([]string{}, reservationRequired...), "lot_id"),
		"additionalProperties": true,
		"properties": reservationProperties(bson.M{
			"spot_ids": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 1,
				"items": bson.M{
					"bsonType": "string",
				},
			},
			"lot_id": bson.M{
				"bsonType": "string",
			},
		}),
	},
}

var EventReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             append(append([]string{}, reservationRequired...), "event_name"),
		"additionalProperties": true,
		"properties": reservationProperties(bson.M{
			"event_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},
			"justification": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},
			"admin_notes": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},
		}),
	},
}

var ReservationLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "version"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"version": bson.M{
				"bsonType": []string{"int", "long"},
			},
			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
