// Command generate_demo creates a demo database with sample users, recipes,
// comments, ratings and favourites.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/database"
	"github.com/mrlokans/cookbook/internal/database/comments"
	"github.com/mrlokans/cookbook/internal/database/favourites"
	"github.com/mrlokans/cookbook/internal/database/ratings"
	recipesdb "github.com/mrlokans/cookbook/internal/database/recipes"
	"github.com/mrlokans/cookbook/internal/database/users"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/recipes"
	"github.com/mrlokans/cookbook/internal/sessions"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	demoPassword            = "cookbook123"
)

type demoRecipe struct {
	Author string
	Input  recipes.Input
	// Reviews maps a username to the rating and comment they leave.
	Reviews   map[string]review
	FavedBy   []string
	LikeCount int
}

type review struct {
	Rating  int
	Comment string
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	userRepo := users.NewRepository(db.DB)
	favRepo := favourites.NewRepository(db.DB)
	authSvc := auth.NewService(userRepo, sessions.NewMemoryStore(), auth.NewHasher(10, false))
	recipeSvc := recipes.NewService(recipes.Deps{
		Recipes:  recipesdb.NewRepository(db.DB),
		Comments: comments.NewRepository(db.DB),
		Ratings:  ratings.NewRepository(db.DB),
	})

	accounts := createUsers(ctx, authSvc)

	for _, dr := range demoRecipes() {
		author, ok := accounts[dr.Author]
		if !ok {
			continue
		}
		recipe, err := recipeSvc.Create(ctx, author, dr.Input)
		if err != nil {
			log.Printf("Failed to save recipe %s: %v", dr.Input.Title, err)
			continue
		}
		log.Printf("Saved: %s by %s", recipe.Title, author.Username)

		for username, rv := range dr.Reviews {
			reviewer := accounts[username]
			if _, err := recipeSvc.Rate(ctx, reviewer, recipe.ID, rv.Rating); err != nil {
				log.Printf("Failed to rate %s: %v", recipe.Title, err)
			}
			if rv.Comment != "" {
				if _, err := recipeSvc.AddComment(ctx, reviewer, recipe.ID, rv.Comment); err != nil {
					log.Printf("Failed to comment on %s: %v", recipe.Title, err)
				}
			}
		}
		for _, username := range dr.FavedBy {
			if err := favRepo.Add(ctx, accounts[username].ID, recipe.ID); err != nil {
				log.Printf("Failed to favourite %s: %v", recipe.Title, err)
			}
		}
		for i := 0; i < dr.LikeCount; i++ {
			if _, err := recipeSvc.Like(ctx, recipe.ID); err != nil {
				log.Printf("Failed to like %s: %v", recipe.Title, err)
				break
			}
		}
	}

	log.Printf("Demo database generated successfully! Every account uses the password %q", demoPassword)
}

func createUsers(ctx context.Context, svc *auth.Service) map[string]*entities.User {
	accounts := make(map[string]*entities.User)

	admin, err := svc.CreatePrivilegedUser(ctx, "admin", "admin@example.com", demoPassword)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	accounts[admin.Username] = admin

	for _, name := range []string{"maria", "tomas", "aiko"} {
		user, _, err := svc.Register(ctx, name, name+"@example.com", demoPassword)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", name, err)
		}
		accounts[name] = user
	}
	return accounts
}

func demoRecipes() []demoRecipe {
	return []demoRecipe{
		{
			Author: "maria",
			Input: recipes.Input{
				Title:        "Country Sourdough",
				Ingredients:  `["500g bread flour","350g water","100g levain","10g salt"]`,
				Instructions: `["Mix flour and water, rest 1 hour","Add levain and salt","Stretch and fold every 30 minutes for 3 hours","Shape and proof overnight in the fridge","Bake at 250C in a dutch oven for 45 minutes"]`,
				CookingTime:  45,
				Category:     "Baking",
				Difficulty:   "hard",
				Servings:     8,
			},
			Reviews: map[string]review{
				"tomas": {Rating: 5, Comment: "Best crust I've managed at home."},
				"aiko":  {Rating: 4, Comment: "Needed a longer bulk in a cold kitchen."},
			},
			FavedBy:   []string{"tomas", "aiko"},
			LikeCount: 12,
		},
		{
			Author: "tomas",
			Input: recipes.Input{
				Title:        "Tomato Lentil Soup",
				Ingredients:  `["1 onion","2 carrots","200g red lentils","1 can tomatoes","1l vegetable stock","1 tsp cumin"]`,
				Instructions: `["Soften onion and carrots","Add cumin, lentils, tomatoes and stock","Simmer 25 minutes","Blend until smooth"]`,
				CookingTime:  35,
				Category:     "Soups",
				Difficulty:   "easy",
				Servings:     4,
			},
			Reviews: map[string]review{
				"maria": {Rating: 4},
				"aiko":  {Rating: 5, Comment: "Weeknight staple now."},
			},
			FavedBy:   []string{"maria"},
			LikeCount: 7,
		},
		{
			Author: "aiko",
			Input: recipes.Input{
				Title:        "Miso Glazed Aubergine",
				Ingredients:  `["2 aubergines","2 tbsp white miso","1 tbsp mirin","1 tbsp sugar","sesame seeds"]`,
				Instructions: "Halve the aubergines and score the flesh.\nRoast at 200C for 25 minutes.\nBrush with the miso glaze and grill until bubbling.\nFinish with sesame seeds.",
				CookingTime:  30,
				Category:     "Mains",
				Difficulty:   "medium",
				Servings:     2,
			},
			Reviews: map[string]review{
				"maria": {Rating: 5, Comment: "The glaze is perfect."},
				"tomas": {Rating: 3},
			},
			LikeCount: 3,
		},
		{
			Author: "maria",
			Input: recipes.Input{
				Title:       "Lemon Olive Oil Cake",
				Ingredients: `["200g flour","150g sugar","3 eggs","120ml olive oil","2 lemons","2 tsp baking powder"]`,
				CookingTime: 40,
				Category:    "Baking",
				Difficulty:  "medium",
			},
			FavedBy: []string{"aiko"},
		},
	}
}
