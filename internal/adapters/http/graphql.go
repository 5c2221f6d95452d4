package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// buildSchema creates the read-only GraphQL schema over the game state.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	questionFields := func() graphql.Fields {
		return graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"title":      &graphql.Field{Type: graphql.String},
			"prompt":     &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"foundBy":    &graphql.Field{Type: graphql.NewList(graphql.String)},
			"foundCount": &graphql.Field{Type: graphql.Int},
		}
	}

	questionType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Question",
		Fields: questionFields(),
	})

	targetFields := questionFields()
	targetFields["distanceMeters"] = &graphql.Field{Type: graphql.Float}
	targetFields["inRange"] = &graphql.Field{Type: graphql.Boolean}
	targetFields["fallback"] = &graphql.Field{Type: graphql.Boolean}
	targetType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Target",
		Fields: targetFields,
	})

	standingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Standing",
		Fields: graphql.Fields{
			"rank":   &graphql.Field{Type: graphql.Int},
			"teamId": &graphql.Field{Type: graphql.String},
			"name":   &graphql.Field{Type: graphql.String},
			"found":  &graphql.Field{Type: graphql.Int},
			"points": &graphql.Field{Type: graphql.Int},
		},
	})

	positionArgs := graphql.FieldConfigArgument{
		"lat":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lng":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"user": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
	}
	position := func(p graphql.ResolveParams) (domain.GeoPoint, string) {
		user, _ := p.Args["user"].(string)
		return domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}, user
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"questions": &graphql.Field{
				Type:        graphql.NewList(questionType),
				Description: "All questions with the teams that found them",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					all := deps.Questions.All()
					out := make([]map[string]any, len(all))
					for i, q := range all {
						out[i] = questionMap(q)
					}
					return out, nil
				},
			},
			"question": &graphql.Field{
				Type:        questionType,
				Description: "Get a question by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					q, err := deps.Questions.Get(p.Args["id"].(string))
					if errors.Is(err, domain.ErrQuestionNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return questionMap(q), nil
				},
			},
			"target": &graphql.Field{
				Type:        targetType,
				Description: "The next question for a player",
				Args:        positionArgs,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					pos, user := position(p)
					t, err := deps.Targets.GetTarget(p.Context, pos, user)
					if err != nil {
						return nil, err
					}
					return targetMap(*t), nil
				},
			},
			"nearby": &graphql.Field{
				Type:        graphql.NewList(targetType),
				Description: "Unsolved questions around a player, closest first",
				Args:        positionArgs,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					pos, user := position(p)
					ts, err := deps.Targets.Nearby(p.Context, pos, user)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]any, len(ts))
					for i, t := range ts {
						out[i] = targetMap(t)
					}
					return out, nil
				},
			},
			"leaderboard": &graphql.Field{
				Type:        graphql.NewList(standingType),
				Description: "Team standings",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					rows, _, err := deps.Leaderboard.Page(p.Context, 0, p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					out := make([]map[string]any, len(rows))
					for i, r := range rows {
						out[i] = map[string]any{
							"rank": r.Rank, "teamId": r.TeamID, "name": r.Name,
							"found": r.Found, "points": r.Points,
						}
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func questionMap(q domain.Question) map[string]any {
	return map[string]any{
		"id":         q.ID,
		"title":      q.Title,
		"prompt":     q.Prompt,
		"location":   map[string]any{"lat": q.Location.Lat, "lng": q.Location.Lng},
		"foundBy":    q.FoundBy,
		"foundCount": q.FoundCount(),
	}
}

func targetMap(t domain.Target) map[string]any {
	m := questionMap(t.Question)
	m["distanceMeters"] = t.DistanceMeters
	m["inRange"] = t.InRange
	m["fallback"] = t.Fallback
	return m
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid GraphQL request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
