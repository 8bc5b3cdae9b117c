// starpipe is a toolkit for loading music play logs and song catalog
// metadata into a star schema.
//
// The ingest pipeline has three kinds of moving parts:
//
// 1. Source
//
//    A starpipe.Source is at the beginning of every load. Your data is
//    everywhere - S3 buckets, local files, Kafka topics, CSV dumps,
//    hard-coded in tests. Different Sources know how to interact with
//    the various systems holding your data and get it out one record
//    at a time, all wrapped up behind one convenient interface. A
//    Source does not manipulate or massage the data in any way - that
//    job falls to the record parsers in this package, so the same
//    parsing code works against any Source.
//
// 2. Pipeline
//
//    The Pipeline drives the transformation. It reads catalog records
//    and play events, derives the dimension rows (songs and artists
//    first-write-wins, users last-write-wins on subscription level,
//    time deduplicated by start time), and then - only after all
//    dimensions are committed - resolves each play event against the
//    committed catalog and assembles songplay fact rows. The
//    dimension-then-fact ordering is an explicit phase barrier, not an
//    accident of statement order.
//
// 3. Sink
//
//    The Sink is responsible for getting rows into storage. It exposes
//    idempotent upsert semantics keyed by primary key, so running the
//    same input twice leaves the tables unchanged. Implementations for
//    BoltDB, LevelDB and Postgres live in sub-packages; an in-memory
//    Sink lives here for tests and dry runs.

package starpipe
