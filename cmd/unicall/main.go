package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/unicall/unicall"
	"github.com/unicall/unicall/anthropic"
	"github.com/unicall/unicall/config"
	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: unicall [ask|stream|extract|recommend] \"prompt...\"")
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.AnthropicAPIKey == "" {
		log.Fatal("ANTHROPIC_API_KEY environment variable is required")
	}

	mode := os.Args[1]
	prompt := strings.Join(os.Args[2:], " ")

	factory, err := anthropic.Factory()
	if err != nil {
		log.Fatalf("Failed to initialize provider: %v", err)
	}

	ctx := context.Background()
	messages := []llm.Message{llm.UserText(prompt)}

	switch mode {
	case "ask":
		runAsk(ctx, factory, cfg.DefaultModel, messages)
	case "stream":
		runStream(ctx, factory, cfg.DefaultModel, messages)
	case "extract":
		runExtract(ctx, factory, cfg.DefaultModel, messages)
	case "recommend":
		runRecommend(ctx, factory, cfg.DefaultModel, messages)
	default:
		fmt.Printf("Unknown mode %q\n", mode)
		os.Exit(1)
	}
}

func runAsk(ctx context.Context, factory *unicall.Factory[anthropic.Response, anthropic.Chunk], model string, messages []llm.Message) {
	call, err := factory.Bind(unicall.Config[anthropic.Response]{Model: model})
	if err != nil {
		log.Fatalf("Failed to bind call: %v", err)
	}

	resp, err := call.Do(ctx, messages)
	if err != nil {
		log.Fatalf("Call failed: %v", err)
	}

	fmt.Println(resp.Content())
	printCost(resp.Cost())
}

func runStream(ctx context.Context, factory *unicall.Factory[anthropic.Response, anthropic.Chunk], model string, messages []llm.Message) {
	call, err := factory.Bind(unicall.Config[anthropic.Response]{Model: model, Stream: true})
	if err != nil {
		log.Fatalf("Failed to bind call: %v", err)
	}

	stream, err := call.Stream(ctx, messages)
	if err != nil {
		log.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	for stream.Next() {
		if chunk := stream.Current().Chunk; chunk != nil {
			fmt.Print(chunk.Content())
		}
	}
	if err := stream.Err(); err != nil {
		log.Fatalf("Stream error: %v", err)
	}

	fmt.Println()
	printCost(stream.Cost())
}

// Book is the extraction demo's response model.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func runExtract(ctx context.Context, factory *unicall.Factory[anthropic.Response, anthropic.Chunk], model string, messages []llm.Message) {
	book, resp, err := unicall.Extract[Book](ctx, factory, unicall.Config[anthropic.Response]{Model: model}, messages)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	fmt.Printf("Title:  %s\nAuthor: %s\n", book.Title, book.Author)
	printCost(resp.Cost())
}

// runRecommend demonstrates tool calling end to end: the model picks a genre
// via the tool, and we invoke it locally.
func runRecommend(ctx context.Context, factory *unicall.Factory[anthropic.Response, anthropic.Chunk], model string, messages []llm.Message) {
	type genreArgs struct {
		Genre string `json:"genre" jsonschema:"description=The book genre to recommend from"`
	}

	recommend, err := tool.Func("recommend_book", "Recommend a book in the given genre",
		func(ctx context.Context, args genreArgs) (string, error) {
			picks := map[string]string{
				"fantasy": "The Name of the Wind by Patrick Rothfuss",
				"scifi":   "A Fire Upon the Deep by Vernor Vinge",
				"mystery": "The Big Sleep by Raymond Chandler",
			}
			if pick, ok := picks[strings.ToLower(args.Genre)]; ok {
				return pick, nil
			}
			return "The Master and Margarita by Mikhail Bulgakov", nil
		})
	if err != nil {
		log.Fatalf("Failed to build tool: %v", err)
	}

	call, err := factory.Bind(unicall.Config[anthropic.Response]{
		Model: model,
		Tools: []*tool.Definition{recommend},
	})
	if err != nil {
		log.Fatalf("Failed to bind call: %v", err)
	}

	resp, err := call.Do(ctx, messages)
	if err != nil {
		log.Fatalf("Call failed: %v", err)
	}

	calls, err := resp.ToolCalls()
	if err != nil {
		log.Fatalf("Tool resolution failed: %v", err)
	}
	if len(calls) == 0 {
		fmt.Println(resp.Content())
		return
	}

	for _, rc := range calls {
		result, err := rc.Invoke(ctx)
		if err != nil {
			log.Fatalf("Tool %s failed: %v", rc.Name(), err)
		}
		fmt.Printf("%s -> %s\n", rc.Name(), result)
	}
	printCost(resp.Cost())
}

func printCost(cost *float64) {
	if cost != nil {
		fmt.Printf("(cost: $%.6f)\n", *cost)
	}
}
