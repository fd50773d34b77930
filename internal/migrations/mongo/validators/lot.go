package validators

import "go.mongodb.org/mongo-driver/bson"

var LotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"location",
			"capacity",
			"base_rate_cents",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"location": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"counters": bson.M{
				"bsonType": "object",
				"additionalProperties": bson.M{
					"bsonType": []string{"int", "long"},
				},
			},

			"base_rate_cents": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"spot_ids": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var SpotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"code",
			"lot_id",
			"type",
			"is_occupied",
			"is_reserved",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"code": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 32,
			},

			"lot_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"type": bson.M{
				"bsonType":  "string",
				"maxLength": 50,
			},

			"level": bson.M{
				"bsonType": []string{"int", "long"},
			},

			"is_occupied": bson.M{
				"bsonType": "bool",
			},

			"is_reserved": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
