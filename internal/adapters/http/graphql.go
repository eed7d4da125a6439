package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	mediaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Media",
		Fields: graphql.Fields{
			"kind": &graphql.Field{Type: graphql.String},
			"url":  &graphql.Field{Type: graphql.String},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"tour_id":     &graphql.Field{Type: graphql.String},
			"title":       &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"order":       &graphql.Field{Type: graphql.Int},
			"media":       &graphql.Field{Type: mediaType},
		},
	})

	tourType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tour",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"slug":             &graphql.Field{Type: graphql.String},
			"author_id":        &graphql.Field{Type: graphql.String},
			"title":            &graphql.Field{Type: graphql.String},
			"description":      &graphql.Field{Type: graphql.String},
			"latitude":         &graphql.Field{Type: graphql.String},
			"longitude":        &graphql.Field{Type: graphql.String},
			"status":           &graphql.Field{Type: graphql.String},
			"duration_minutes": &graphql.Field{Type: graphql.Int},
			"cover_image_url":  &graphql.Field{Type: graphql.String},
			"distance_km":      &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"tours": &graphql.Field{
				Type:        graphql.NewList(tourType),
				Description: "List all published tours",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tours.ListPublished(p.Context)
				},
			},
			"tour": &graphql.Field{
				Type:        tourType,
				Description: "Get a tour by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Tours.GetByID(p.Context, id)
				},
			},
			"tourBySlug": &graphql.Field{
				Type:        tourType,
				Description: "Get a tour by URL slug",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["slug"].(string)
					return deps.Tours.GetBySlug(p.Context, slug)
				},
			},
			"nearbyTours": &graphql.Field{
				Type:        graphql.NewList(tourType),
				Description: "Find published tours starting near a location",
				Args: graphql.FieldConfigArgument{
					"lat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 5.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radiusKm := p.Args["radius_km"].(float64)
					return deps.Discovery.Nearby(p.Context, lat, lon, radiusKm)
				},
			},
			"tourStops": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "A tour's stops in walking order",
				Args: graphql.FieldConfigArgument{
					"tour_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tourID := p.Args["tour_id"].(string)
					return deps.Tours.Stops(p.Context, tourID)
				},
			},
			"authorTours": &graphql.Field{
				Type:        graphql.NewList(tourType),
				Description: "An author's tours, drafts included",
				Args: graphql.FieldConfigArgument{
					"author_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					authorID := p.Args["author_id"].(string)
					return deps.Tours.ListByAuthor(p.Context, authorID)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
