package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/Sabariaz123456/Hackathon3/internal/catalog/sanity"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

const (
	// Sanity exports can carry large portable-text documents on one line.
	maxLineBytes  = 16 << 20
	progressEvery = 1000
)

type upserter interface {
	Upsert(ctx context.Context, p product.Product) error
}

// readExports parses every file concurrently and merges the products in file
// order. A later occurrence of an id replaces the earlier one.
func readExports(ctx context.Context, files []string) ([]product.Product, error) {
	results := make([][]product.Product, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			products, err := readExport(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			slog.Info("export parsed", slog.String("file", path), slog.Int("products", len(products)))
			results[i] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []product.Product
	pos := make(map[string]int)
	for _, products := range results {
		for _, p := range products {
			if i, ok := pos[p.ID]; ok {
				merged[i] = p
				continue
			}
			pos[p.ID] = len(merged)
			merged = append(merged, p)
		}
	}
	return merged, nil
}

// readExport streams one gzip-compressed NDJSON export.
func readExport(ctx context.Context, path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var products []product.Product
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		p, ok, err := parseDocument(data)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if ok {
			products = append(products, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return products, nil
}

// parseDocument decodes one export line. Documents that are not published
// products are skipped with ok=false.
func parseDocument(data []byte) (p product.Product, ok bool, err error) {
	var id, typ string
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() != jx.String {
			return d.Skip()
		}
		switch string(key) {
		case "_id":
			v, err := d.Str()
			id = v
			return err
		case "_type":
			v, err := d.Str()
			typ = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return product.Product{}, false, errors.Wrap(err, "decode document")
	}
	if typ != "product" || strings.HasPrefix(id, "drafts.") {
		return product.Product{}, false, nil
	}

	p, err = sanity.DecodeProduct(jx.DecodeBytes(data))
	if err != nil {
		return product.Product{}, false, errors.Wrapf(err, "decode product %q", id)
	}
	return p, true, nil
}

// writeProducts upserts products one by one.
func writeProducts(ctx context.Context, repo upserter, products []product.Product) error {
	slog.Info("writing products to database", slog.Int("count", len(products)))

	for i, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return err
		}
		if (i+1)%progressEvery == 0 || i+1 == len(products) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(products)))
		}
	}
	return nil
}
