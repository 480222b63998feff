/*
Package monitoring aggregates how often each model type is built and how long
it takes, across arbitrarily nested model graphs.

The process keeps one live [ModelUsageData] tree, owned by a [Monitor]. Each
request records into it through its own [Tracker], which implements
slice.Observer: a model built while another one is being built is counted
under its parent, so the tree mirrors the shape of the model graphs.
[Monitor.Rollover] detaches the live sub-models, reports them and folds them
into running totals. [Collector] exposes totals plus the live tree to
Prometheus.
*/
package monitoring
