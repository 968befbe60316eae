// elContig: a high-performance tool for loading ACE assemblies.
// Copyright (c) 2017-2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elcontig/blob/master/LICENSE.txt>.

// Package server serves a loaded repository over HTTP for viewers.
package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/annotation"
	"github.com/exascience/elcontig/repository"
	"github.com/exascience/elcontig/snp"
)

// DefaultThreshold is the initial SNP variation percentage threshold.
const DefaultThreshold = 20

// Store is the read access the server needs.
type Store interface {
	Contigs() ([]repository.ContigSummary, error)
	ContigSize(contigID int32) (int32, error)
	Sequence(contigID int32) ([]byte, error)
	FragmentsInRange(contigID, start, end int32) ([]*ace.Fragment, error)
	Snps(contigID, threshold int32) ([]ace.Snp, error)
	NextSnp(contigID, pos, threshold int32) (ace.Snp, error)
	PrevSnp(contigID, pos, threshold int32) (ace.Snp, error)
	Annotations(contigID, start, end int32) ([]annotation.Annotation, error)
}

// A Server answers viewer queries on a Store.
type Server struct {
	store     Store
	threshold atomic.Int32
	router    *gin.Engine
}

// New creates a Server with the given initial SNP threshold. The
// middleware runs in front of every route, after panic recovery.
func New(store Store, threshold int, middleware ...gin.HandlerFunc) (*Server, error) {
	if err := snp.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	s := &Server{store: store}
	s.threshold.Store(int32(threshold))
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(middleware...)
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP requests on the given address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// SnpThreshold returns the current SNP threshold.
func (s *Server) SnpThreshold() int {
	return int(s.threshold.Load())
}

// SetSnpThreshold changes the SNP threshold. Invalid thresholds are
// rejected and leave the current one in place.
func (s *Server) SetSnpThreshold(threshold int) error {
	if err := snp.ValidateThreshold(threshold); err != nil {
		return err
	}
	s.threshold.Store(int32(threshold))
	return nil
}

func (s *Server) routes() {
	r := s.router
	r.GET("/contigs", s.contigs)
	contig := r.Group("/contigs/:id")
	contig.GET("/size", s.size)
	contig.GET("/sequence", s.sequence)
	contig.GET("/fragments", s.fragments)
	contig.GET("/snps", s.snps)
	contig.GET("/snps/next", s.nextSnp)
	contig.GET("/snps/prev", s.prevSnp)
	contig.GET("/annotations", s.annotations)
	r.GET("/threshold", s.getThreshold)
	r.PUT("/threshold/:value", s.putThreshold)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func storeError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Printf("Error: %v, while serving %v", err, c.Request.URL)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func contigID(c *gin.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id < 1 {
		badRequest(c, "invalid contig id "+strconv.Quote(c.Param("id")))
		return 0, false
	}
	return int32(id), true
}

// int32Query parses an optional integer query parameter.
func int32Query(c *gin.Context, key string, def int32) (int32, bool) {
	value, ok := c.GetQuery(key)
	if !ok || value == "" {
		return def, true
	}
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		badRequest(c, "invalid "+key+" "+strconv.Quote(value))
		return 0, false
	}
	return int32(n), true
}

func (s *Server) thresholdQuery(c *gin.Context) (int32, bool) {
	threshold, ok := int32Query(c, "threshold", int32(s.SnpThreshold()))
	if !ok {
		return 0, false
	}
	if err := snp.ValidateThreshold(int(threshold)); err != nil {
		badRequest(c, err.Error())
		return 0, false
	}
	return threshold, true
}

func (s *Server) contigs(c *gin.Context) {
	contigs, err := s.store.Contigs()
	if err != nil {
		storeError(c, err)
		return
	}
	if contigs == nil {
		contigs = []repository.ContigSummary{}
	}
	c.JSON(http.StatusOK, contigs)
}

func (s *Server) size(c *gin.Context) {
	id, ok := contigID(c)
	if !ok {
		return
	}
	size, err := s.store.ContigSize(id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "size": size})
}

func (s *Server) sequence(c *gin.Context) {
	id, ok := contigID(c)
	if !ok {
		return
	}
	seq, err := s.store.Sequence(id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", seq)
}

func (s *Server) fragments(c *gin.Context) {
	id, ok := contigID(c)
	if !ok {
		return
	}
	start, ok := int32Query(c, "start", 1)
	if !ok {
		return
	}
	end, ok := int32Query(c, "end", maxPos)
	if !ok {
		return
	}
	fragments, err := s.store.FragmentsInRange(id, start, end)
	if err != nil {
		storeError(c, err)
		return
	}
	views := make([]fragmentView, len(fragments))
	for i, f := range fragments {
		views[i] = newFragmentView(f)
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) snps(c *gin.Context) {
	id, ok := contigID(c)
	if !ok {
		return
	}
	threshold, ok := s.thresholdQuery(c)
	if !ok {
		return
	}
	snps, err := s.store.Snps(id, threshold)
	if err != nil {
		storeError(c, err)
		return
	}
	views := make([]snpView, len(snps))
	for i, v := range snps {
		views[i] = newSnpView(v)
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) neighbourSnp(c *gin.Context, find func(contigID, pos, threshold int32) (ace.Snp, error)) {
	id, ok := contigID(c)
	if !ok {
		return
	}
	pos, ok := int32Query(c, "pos", 0)
	if !ok {
		return
	}
	threshold, ok := s.thresholdQuery(c)
	if !ok {
		return
	}
	v, err := find(id, pos, threshold)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSnpView(v))
}

func (s *Server) nextSnp(c *gin.Context) {
	s.neighbourSnp(c, s.store.NextSnp)
}

func (s *Server) prevSnp(c *gin.Context) {
	s.neighbourSnp(c, s.store.PrevSnp)
}

func (s *Server) annotations(c *gin.Context) {
	id, ok := contigID(c)
	if !ok {
		return
	}
	start, ok := int32Query(c, "start", 0)
	if !ok {
		return
	}
	end, ok := int32Query(c, "end", maxPos)
	if !ok {
		return
	}
	annotations, err := s.store.Annotations(id, start, end)
	if err != nil {
		storeError(c, err)
		return
	}
	views := make([]annotationView, len(annotations))
	for i, a := range annotations {
		views[i] = newAnnotationView(a)
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getThreshold(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"threshold": s.SnpThreshold()})
}

func (s *Server) putThreshold(c *gin.Context) {
	value, err := strconv.Atoi(c.Param("value"))
	if err != nil {
		badRequest(c, "invalid threshold "+strconv.Quote(c.Param("value")))
		return
	}
	if err := s.SetSnpThreshold(value); err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": s.SnpThreshold()})
}
